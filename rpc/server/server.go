package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/region/engines/maple"
	"github.com/ValentinKolb/dTravel/lib/region/engines/pebbledb"
	"github.com/ValentinKolb/dTravel/lib/region/engines/sqlitedb"
	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/lib/service/dservice"
	"github.com/ValentinKolb/dTravel/lib/service/lservice"
	"github.com/ValentinKolb/dTravel/rpc/common"
	"github.com/ValentinKolb/dTravel/rpc/serializer"
	"github.com/ValentinKolb/dTravel/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the service it encapsulates and the adapter
// that handles requests for the service
type serverShard struct {
	Service service.IService
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := rpc.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	nodeHost   *dragonboat.NodeHost
}

// MediumFactory returns the factory for the medium of a local shard stored in dir
func MediumFactory(medium string, dir string) (region.Factory, error) {
	switch region.Implementation(medium) {
	case region.ImplPebble:
		return pebbledb.Factory(dir, nil), nil
	case region.ImplSQLite:
		return func() (region.IMedium, error) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			return sqlitedb.NewSQLiteMedium(filepath.Join(dir, "travel.db"))
		}, nil
	case region.ImplMaple:
		return maple.Factory(nil), nil
	default:
		return nil, fmt.Errorf("invalid medium %s (expected one of: %s, %s, %s)", medium, region.ImplPebble, region.ImplSQLite, region.ImplMaple)
	}
}

// handle decodes a request, lets the adapter of the shard handle it and encodes the response
func (s *rpcServer) handle(shardId uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	// Get appropriate shard
	shard, ok := s.shards.Load(shardId)

	// Case shard does not exist -> error
	if !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the adapter handle the request
		respMsg = shard.Adapter.Handle(&msg, shard.Service)
	}

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// Create the Dragonboat NodeHost
	var err error
	if s.config.HasRemoteShard() {
		// Only create the NodeHost if we have remote shards
		s.nodeHost, err = dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
	}

	// Configure the timeout for the distributed service
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	// CREATE SHARDS

	/*
		Note: A single RPC Server can have any number of raft and or local shards.
		Local shards keep their records in the configured medium below the data dir.
		Raft shards rebuild their state from the raft log, their state machine
		therefore always starts on an empty in-memory medium.
	*/

	for _, shardConfig := range s.config.Shards {
		switch shardConfig.Type {

		// Case local service
		case common.ShardTypeLocal:
			factory, err := MediumFactory(s.config.Medium, s.config.ShardDir(shardConfig.ShardID))
			if err != nil {
				return err
			}
			svc, err := lservice.NewLocalService(factory)
			if err != nil {
				return fmt.Errorf("failed to open shard %d: %w", shardConfig.ShardID, err)
			}
			s.shards.Store(shardConfig.ShardID, serverShard{
				Service: svc,
				Adapter: NewServiceServerAdapter(),
			})
			Logger.Infof("created local service (%s) for shard %d", s.config.Medium, shardConfig.ShardID)

		// Case replicated service
		case common.ShardTypeRaft:
			if s.nodeHost == nil {
				return fmt.Errorf("node host is nil, cannot create raft shard")
			}

			// Start Raft for the shard
			if err := s.nodeHost.StartConcurrentReplica(
				s.config.ClusterMembers,
				false,
				dservice.CreateStateMachineFactory(maple.Factory(nil)),
				s.config.ToDragonboatConfig(shardConfig.ShardID),
			); err != nil {
				return fmt.Errorf("failed to start shard %d: %w", shardConfig.ShardID, err)
			}

			s.shards.Store(shardConfig.ShardID, serverShard{
				Service: dservice.NewDistributedService(s.nodeHost, shardConfig.ShardID, timeout),
				Adapter: NewServiceServerAdapter(),
			})
			Logger.Infof("created raft service for shard %d", shardConfig.ShardID)

		default:
			return fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}
	}

	Logger.Infof("dTravel setup completed successfully")

	// Configure the transport layer
	s.transport.RegisterHandler(s.handle)

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return errors.Join(err, s.Close())
	}
	return s.transport.Listen(s.config)
}

// Shutdown stops the transport, then closes all shards
func (s *rpcServer) Shutdown(ctx context.Context) error {
	return errors.Join(s.transport.Shutdown(ctx), s.Close())
}

// Close closes the services of all shards and stops the node host
func (s *rpcServer) Close() error {
	var errs []error
	s.shards.Range(func(shardId uint64, shard serverShard) bool {
		if err := shard.Service.Close(); err != nil {
			errs = append(errs, fmt.Errorf("shard %d: %w", shardId, err))
		}
		s.shards.Delete(shardId)
		return true
	})
	if s.nodeHost != nil {
		s.nodeHost.Close()
		s.nodeHost = nil
	}
	return errors.Join(errs...)
}
