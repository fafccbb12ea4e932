package main

import (
	"github.com/mskd12/skip-checkpoint-chain/skipchain/feed"
)

// loadMain builds the pieces the stage tests drive: a synthetic feed
// capped at latestEventID and a config rooted at dataDir.
func loadMain(latestEventID uint64, dataDir string) (*feed.SyntheticGetter, RuntimeArguments) {
	arguments := RuntimeArguments{
		EnableService:  false,
		EnableAnnounce: false,
		EnableTest:     true,
		TestEventLimit: latestEventID,
	}

	GlobalConfig = Config{}
	GlobalConfig.Chain.Name = "testchain"
	GlobalConfig.Chain.IntervalSeconds = 1
	GlobalConfig.Chain.DataDir = dataDir

	return feed.NewSyntheticGetter(latestEventID), arguments
}
