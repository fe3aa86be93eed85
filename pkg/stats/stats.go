package stats

import (
	"sync"
	"time"

	"k8s.io/klog/v2"
)

var globalStats map[StatsType]time.Duration
var globalStatsMutex sync.RWMutex

// StatsType names one timed stage of a cycle.
type StatsType string

const (
	// Total is the wall-clock duration of the whole cycle
	Total StatsType = "Total"
	// TokenExchange is the duration of the federated token exchange
	TokenExchange StatsType = "Token exchange"
	// ARMCall is the duration of the orchestrators GET
	ARMCall StatsType = "ARM call"
	// Filter is the duration of version filtering and sorting
	Filter StatsType = "Version filtering"
)

// Init resets the collected stats.
func Init() {
	globalStatsMutex.Lock()
	globalStats = make(map[StatsType]time.Duration)
	globalStatsMutex.Unlock()
}

// Put overwrites the duration for the given stage.
func Put(key StatsType, val time.Duration) {
	globalStatsMutex.Lock()
	if globalStats != nil {
		globalStats[key] = val
	}
	globalStatsMutex.Unlock()
}

// Get returns the recorded duration for the given stage.
func Get(key StatsType) time.Duration {
	globalStatsMutex.RLock()
	defer globalStatsMutex.RUnlock()
	if globalStats != nil {
		return globalStats[key]
	}
	return 0
}

// Update adds to the duration for the given stage.
func Update(key StatsType, val time.Duration) {
	globalStatsMutex.Lock()
	if globalStats != nil {
		globalStats[key] = globalStats[key] + val
	}
	globalStatsMutex.Unlock()
}

// Print logs one stage duration.
func Print(key StatsType) {
	globalStatsMutex.RLock()
	klog.V(1).Infof("%s: %s", key, globalStats[key])
	globalStatsMutex.RUnlock()
}

// PrintSync prints all stage durations for the finished cycle.
func PrintSync() {
	klog.V(1).Infof("** stats collected **")
	if globalStats != nil {
		Print(TokenExchange)
		Print(ARMCall)
		Print(Filter)
		Print(Total)
	}
	klog.V(1).Infof("*********************")
}
