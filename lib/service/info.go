package service

import (
	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/travel/crud"
)

// CollectInfo builds the Info of an orchestrator and the manager it runs on
func CollectInfo(mgr *region.Manager, o *crud.Orchestrator) (Info, error) {
	stats, err := o.Stats()
	if err != nil {
		return Info{}, err
	}
	return Info{
		Records: stats.Records,
		LastID:  stats.LastID,
		Sizes:   stats.Sizes.Summary(),
		Medium:  mgr.Medium().GetInfo(),
	}, nil
}
