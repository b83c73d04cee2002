package client

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/rpc/common"
	"github.com/ValentinKolb/dTravel/rpc/serializer"
	"github.com/ValentinKolb/dTravel/rpc/transport"
)

// NewRPCService creates a new RPC service client
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a service.IService and an error
func NewRPCService(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (service.IService, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC service
	s := rpcService{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC service
	return &s, nil
}

type rpcService struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (i *rpcService) record(req *common.Message) (travel.Record, error) {
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return travel.Record{}, err
	}
	if resp.Record == nil {
		return travel.Record{}, travel.NewError(travel.RetCInternalError, fmt.Sprintf("%s response without record", resp.MsgType))
	}
	return *resp.Record, nil
}

func (i *rpcService) records(req *common.Message) ([]travel.Record, error) {
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	// serializers may drop an empty list
	if resp.Records == nil {
		return []travel.Record{}, nil
	}
	return resp.Records, nil
}

func (i *rpcService) count(req *common.Message) (uint64, error) {
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the service package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcService) Create(p travel.Payload) (travel.Record, error) {
	return i.record(common.NewCreateRequest(p))
}

func (i *rpcService) Read(id uint64) (travel.Record, error) {
	return i.record(common.NewReadRequest(id))
}

func (i *rpcService) Replace(id uint64, p travel.Payload) (travel.Record, error) {
	return i.record(common.NewReplaceRequest(id, p))
}

func (i *rpcService) UpdateDate(id uint64, date uint64) (travel.Record, error) {
	return i.record(common.NewUpdateDateRequest(id, date))
}

func (i *rpcService) Delete(id uint64) (travel.Record, error) {
	return i.record(common.NewDeleteRequest(id))
}

func (i *rpcService) All() ([]travel.Record, error) {
	return i.records(common.NewAllRequest())
}

func (i *rpcService) Count() (uint64, error) {
	return i.count(common.NewCountRequest())
}

func (i *rpcService) ByDateUpperBound(date uint64) ([]travel.Record, error) {
	return i.records(common.NewByDateUpperBoundRequest(date))
}

func (i *rpcService) CountByDateUpperBound(date uint64) (uint64, error) {
	return i.count(common.NewCountByDateUpperBoundRequest(date))
}

func (i *rpcService) ByDestination(destination string) ([]travel.Record, error) {
	return i.records(common.NewByDestinationRequest(destination))
}

func (i *rpcService) SortedByDate() ([]travel.Record, error) {
	return i.records(common.NewSortedByDateRequest())
}

func (i *rpcService) Latest(n uint64) ([]travel.Record, error) {
	return i.records(common.NewLatestRequest(n))
}

func (i *rpcService) GetInfo() (service.Info, error) {
	resp, err := invokeRPCRequest(i.shardId, common.NewInfoRequest(), i.transport, i.serializer)
	if err != nil {
		return service.Info{}, err
	}
	var info service.Info
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return service.Info{}, travel.NewError(travel.RetCInternalError, fmt.Sprintf("invalid info: %s", err))
	}
	return info, nil
}

// Close closes the transport, the server side service stays open
func (i *rpcService) Close() error {
	return i.transport.Close()
}
