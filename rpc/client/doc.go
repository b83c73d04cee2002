// Package client implements the RPC client of the travel experience service.
// It provides an implementation of the service.IService interface that
// communicates with a remote shard via RPC.
//
// The package focuses on:
//   - Transparent RPC access to local and replicated services
//   - Integration with the transport and serialization layers
//   - Restoring the typed travel.Error of a failed operation on the client side
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  Endpoints:     []string{"http://localhost:8080"},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	// Create the service client
//	svc, _ := client.NewRPCService(100, config, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
//
//	// Use the service
//	rec, _ := svc.Create(travel.Payload{Destination: "Kyoto", Date: 1700000000})
//	_, err := svc.Read(rec.ID + 1)
//	if travel.IsNotFound(err) {
//	  // ...
//	}
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
