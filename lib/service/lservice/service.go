package lservice

import (
	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/lib/travel/crud"
	"github.com/ValentinKolb/dTravel/lib/travel/query"
)

type serviceImpl struct {
	mgr   *region.Manager
	crud  *crud.Orchestrator
	query *query.Engine
}

// NewLocalService opens the medium created by factory and builds a service on it.
// A failing factory is returned as error, the service must not start without its medium.
func NewLocalService(factory region.Factory) (service.IService, error) {
	mgr, err := region.Open(factory)
	if err != nil {
		return nil, err
	}
	return FromManager(mgr), nil
}

// FromManager builds a service on an already opened manager.
// The service takes ownership of mgr and closes it on Close.
func FromManager(mgr *region.Manager) service.IService {
	orchestrator := crud.New(mgr)
	return &serviceImpl{
		mgr:   mgr,
		crud:  orchestrator,
		query: query.NewEngine(mgr, orchestrator.Records()),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see service/interface.go)
// --------------------------------------------------------------------------

func (s *serviceImpl) Create(p travel.Payload) (travel.Record, error) {
	return s.crud.Create(p)
}

func (s *serviceImpl) Read(id uint64) (travel.Record, error) {
	return s.crud.Read(id)
}

func (s *serviceImpl) Replace(id uint64, p travel.Payload) (travel.Record, error) {
	return s.crud.Replace(id, p)
}

func (s *serviceImpl) UpdateDate(id uint64, date uint64) (travel.Record, error) {
	return s.crud.UpdateDate(id, date)
}

func (s *serviceImpl) Delete(id uint64) (travel.Record, error) {
	return s.crud.Delete(id)
}

func (s *serviceImpl) All() ([]travel.Record, error) {
	return s.query.All()
}

func (s *serviceImpl) Count() (uint64, error) {
	return s.query.Count()
}

func (s *serviceImpl) ByDateUpperBound(date uint64) ([]travel.Record, error) {
	return s.query.ByDateUpperBound(date)
}

func (s *serviceImpl) CountByDateUpperBound(date uint64) (uint64, error) {
	return s.query.CountByDateUpperBound(date)
}

func (s *serviceImpl) ByDestination(destination string) ([]travel.Record, error) {
	return s.query.ByDestination(destination)
}

func (s *serviceImpl) SortedByDate() ([]travel.Record, error) {
	return s.query.SortedByDateAscending()
}

func (s *serviceImpl) Latest(n uint64) ([]travel.Record, error) {
	return s.query.Latest(n)
}

func (s *serviceImpl) GetInfo() (service.Info, error) {
	return service.CollectInfo(s.mgr, s.crud)
}

func (s *serviceImpl) Close() error {
	return s.mgr.Close()
}
