package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

func NewServiceServerAdapter() IRPCServerAdapter {
	return &serviceServerAdapterImpl{}
}

type serviceServerAdapterImpl struct{}

func (adapter *serviceServerAdapterImpl) Handle(req *common.Message, svc service.IService) *common.Message {
	// Check for nil service
	if svc == nil {
		return common.NewErrorResponse("handler: service is nil")
	}

	start := time.Now()
	resp := adapter.dispatch(req, svc)
	observe(req.MsgType, resp, start)
	return resp
}

// dispatch maps the message to the service method
func (adapter *serviceServerAdapterImpl) dispatch(req *common.Message, svc service.IService) *common.Message {
	switch req.MsgType {

	// Mutations
	case common.MsgTCreate:
		rec, err := svc.Create(payloadOf(req))
		return common.NewRecordResponse(req.MsgType, rec, err)
	case common.MsgTReplace:
		rec, err := svc.Replace(req.ID, payloadOf(req))
		return common.NewRecordResponse(req.MsgType, rec, err)
	case common.MsgTUpdateDate:
		rec, err := svc.UpdateDate(req.ID, req.Date)
		return common.NewRecordResponse(req.MsgType, rec, err)
	case common.MsgTDelete:
		rec, err := svc.Delete(req.ID)
		return common.NewRecordResponse(req.MsgType, rec, err)
	case common.MsgTRead:
		rec, err := svc.Read(req.ID)
		return common.NewRecordResponse(req.MsgType, rec, err)

	// Queries
	case common.MsgTAll:
		recs, err := svc.All()
		return common.NewRecordsResponse(req.MsgType, recs, err)
	case common.MsgTCount:
		n, err := svc.Count()
		return common.NewCountResponse(req.MsgType, n, err)
	case common.MsgTByDateUpperBound:
		recs, err := svc.ByDateUpperBound(req.Date)
		return common.NewRecordsResponse(req.MsgType, recs, err)
	case common.MsgTCountByDateUpperBound:
		n, err := svc.CountByDateUpperBound(req.Date)
		return common.NewCountResponse(req.MsgType, n, err)
	case common.MsgTByDestination:
		recs, err := svc.ByDestination(req.Destination)
		return common.NewRecordsResponse(req.MsgType, recs, err)
	case common.MsgTSortedByDate:
		recs, err := svc.SortedByDate()
		return common.NewRecordsResponse(req.MsgType, recs, err)
	case common.MsgTLatest:
		recs, err := svc.Latest(req.N)
		return common.NewRecordsResponse(req.MsgType, recs, err)

	// Service information
	case common.MsgTInfo:
		info, err := svc.GetInfo()
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		raw, err := json.Marshal(info)
		return common.NewInfoResponse(raw, err)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC ServiceAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}

// payloadOf returns the payload of the request, serializers may drop an empty one
func payloadOf(req *common.Message) travel.Payload {
	if req.Payload == nil {
		return travel.Payload{}
	}
	return *req.Payload
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// observe counts the request per operation and return code and records its duration
func observe(msgType common.MessageType, resp *common.Message, start time.Time) {
	code := resp.Code
	if resp.MsgType == common.MsgTError && code == travel.RetCSuccess {
		code = travel.RetCInternalError
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`dtravel_rpc_requests_total{op=%q,code=%q}`, msgType, code)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`dtravel_rpc_request_duration_seconds{op=%q}`, msgType)).UpdateDuration(start)
}
