// Package health exposes the relay's liveness over the standard gRPC health
// checking protocol (grpc.health.v1.Health).
//
// Both the overall service ("") and ServiceName report NOT_SERVING until
// SetServing(true) is called once the relay listener is up, and go back to
// NOT_SERVING when shutdown begins. Unknown service names get NotFound.
//
// New() builds the gRPC server; Serve(lis) blocks on the listener; Stop()
// marks everything NOT_SERVING and stops gracefully.
package health
