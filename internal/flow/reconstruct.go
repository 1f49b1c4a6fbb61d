// SPDX-License-Identifier: MIT

package flow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TaskInfo is the derived view of one task (or one worker of the
// upload worker pool). Slot is the 0-based index, -1 when unknown;
// SlotNumber is the 1-based display number, 0 when unknown.
type TaskInfo struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Slot       int    `json:"-"`
	SlotNumber int    `json:"slot,omitempty"`
	UpdatedAt  int64  `json:"updated_at,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FlowStep is the derived view of one pipeline stage. Singleton steps
// carry one Task; the worker-pool step carries Workers and a rolled-up
// group status.
type FlowStep struct {
	Name    string     `json:"name"`
	Status  Status     `json:"status"`
	Task    *TaskInfo  `json:"task,omitempty"`
	Workers []TaskInfo `json:"workers,omitempty"`
}

// Options controls a reconstruction call.
type Options struct {
	// WorkerPrefix names the task family treated as the per-photo
	// worker pool. Empty disables worker grouping.
	WorkerPrefix string

	// ExpectedWorkers enables slot filling when positive; unknown
	// slots are synthesized as pending placeholders.
	ExpectedWorkers int
}

// Reconstruct derives the ordered pipeline status view from an
// unordered, possibly incomplete event set. It never fails: malformed
// events are skipped and missing data degrades to pending statuses.
func Reconstruct(events []TaskEvent, opts Options) []FlowStep {
	sorted := make([]TaskEvent, 0, len(events))
	for _, e := range events {
		if e.Validate() != nil {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	var stepOrder []string // step names in first-seen (earliest event) order
	singles := map[string]*bucket{}

	workerBuckets := map[string]*bucket{} // identity key -> bucket
	workerSlots := map[string]int{}       // identity key -> slot, -1 unknown
	familySeen := false

	for _, e := range sorted {
		if opts.WorkerPrefix != "" && strings.HasPrefix(e.Task, opts.WorkerPrefix) {
			if !familySeen {
				familySeen = true
				stepOrder = append(stepOrder, opts.WorkerPrefix)
			}
			slot := workerSlot(e, opts.WorkerPrefix)
			key := workerIdentity(e, opts.WorkerPrefix, slot)
			if key == "" {
				// Not worker-specific; contributes nothing to sub-grouping.
				continue
			}
			b, ok := workerBuckets[key]
			if !ok {
				b = &bucket{name: workerName(e, opts.WorkerPrefix, slot)}
				workerBuckets[key] = b
				workerSlots[key] = slot
			}
			b.events = append(b.events, e)
			continue
		}

		b, ok := singles[e.Task]
		if !ok {
			b = &bucket{name: e.Task}
			singles[e.Task] = b
			stepOrder = append(stepOrder, e.Task)
		}
		b.events = append(b.events, e)
	}

	// An expected worker pool shows up even before its first event.
	if opts.WorkerPrefix != "" && !familySeen && opts.ExpectedWorkers > 0 {
		stepOrder = append(stepOrder, opts.WorkerPrefix)
	}

	steps := make([]FlowStep, 0, len(stepOrder))
	for _, name := range stepOrder {
		if opts.WorkerPrefix != "" && name == opts.WorkerPrefix {
			workers := deriveWorkers(workerBuckets, workerSlots, opts)
			steps = append(steps, FlowStep{
				Name:    name,
				Status:  DeriveGroupStatus(workers),
				Workers: workers,
			})
			continue
		}
		info := deriveTaskInfo(singles[name].name, singles[name].events)
		steps = append(steps, FlowStep{
			Name:   name,
			Status: info.Status,
			Task:   &info,
		})
	}
	return steps
}

// deriveTaskInfo computes one task's status from its timestamp-ordered
// bucket. The latest end event is authoritative; failing that, the
// latest once event; failing that, any start means running.
func deriveTaskInfo(name string, events []TaskEvent) TaskInfo {
	info := TaskInfo{Name: name, Status: StatusPending, Slot: -1}

	var authoritative *TaskEvent
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].State == StateEnd {
			authoritative = &events[i]
			break
		}
	}
	if authoritative == nil {
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].State == StateOnce {
				authoritative = &events[i]
				break
			}
		}
	}

	if authoritative != nil {
		if authoritative.Error != "" {
			info.Status = StatusError
			info.Error = authoritative.Error
		} else {
			info.Status = StatusSuccess
		}
		info.UpdatedAt = authoritative.Timestamp
		if authoritative.DurationMs != nil {
			info.DurationMs = *authoritative.DurationMs
		} else if authoritative.State == StateEnd {
			for _, e := range events {
				if e.State == StateStart {
					if d := authoritative.Timestamp - e.Timestamp; d >= 0 {
						info.DurationMs = d
					}
					break
				}
			}
		}
		return info
	}

	for _, e := range events {
		if e.State == StateStart {
			info.Status = StatusRunning
			info.UpdatedAt = events[len(events)-1].Timestamp
			break
		}
	}
	return info
}

// deriveWorkers computes the ordered worker list: known slots ascending,
// unknown slots after them by name, then slot filling against the
// expected count with pending placeholders and out-of-range extras kept.
func deriveWorkers(buckets map[string]*bucket, slots map[string]int, opts Options) []TaskInfo {
	derived := make([]TaskInfo, 0, len(buckets))
	for key, b := range buckets {
		info := deriveTaskInfo(b.name, b.events)
		info.Slot = slots[key]
		if info.Slot >= 0 {
			info.SlotNumber = info.Slot + 1
		}
		derived = append(derived, info)
	}
	sort.Slice(derived, func(i, j int) bool {
		si, sj := derived[i].Slot, derived[j].Slot
		if si < 0 && sj < 0 {
			return derived[i].Name < derived[j].Name
		}
		if si < 0 || sj < 0 {
			return sj < 0
		}
		return si < sj
	})

	if opts.ExpectedWorkers <= 0 {
		return derived
	}

	filled := make([]TaskInfo, opts.ExpectedWorkers)
	for i := range filled {
		filled[i] = TaskInfo{
			Name:       fmt.Sprintf("%s-%d", opts.WorkerPrefix, i),
			Status:     StatusPending,
			Slot:       i,
			SlotNumber: i + 1,
		}
	}
	var extras []TaskInfo
	taken := make([]bool, opts.ExpectedWorkers)
	for _, info := range derived {
		if info.Slot >= 0 && info.Slot < opts.ExpectedWorkers && !taken[info.Slot] {
			filled[info.Slot] = info
			taken[info.Slot] = true
			continue
		}
		// Configuration drift: keep entries outside the declared range
		// visible instead of discarding them.
		extras = append(extras, info)
	}
	return append(filled, extras...)
}

type bucket struct {
	name   string
	events []TaskEvent
}

// workerSlot derives the 0-based slot of a worker event, preferring the
// explicit slot index and falling back to a numeric task name suffix.
func workerSlot(e TaskEvent, prefix string) int {
	if e.SlotIndex != nil && *e.SlotIndex >= 0 {
		return *e.SlotIndex
	}
	rest := strings.TrimPrefix(e.Task, prefix)
	rest = strings.TrimLeft(rest, "-_:")
	if rest == "" {
		return -1
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return -1
	}
	return idx
}

// workerIdentity keys a worker sub-group. Events carrying neither a
// slot nor a distinguishing task name are not worker-specific and are
// excluded from sub-grouping.
func workerIdentity(e TaskEvent, prefix string, slot int) string {
	if slot >= 0 {
		return fmt.Sprintf("%s/%s/slot/%d", e.Tenant, e.Reference, slot)
	}
	if e.Task != prefix {
		return "name/" + e.Task
	}
	return ""
}

// workerName picks the display name of a worker sub-group.
func workerName(e TaskEvent, prefix string, slot int) string {
	if e.Task != prefix {
		return e.Task
	}
	if slot >= 0 {
		return fmt.Sprintf("%s-%d", prefix, slot)
	}
	return e.Task
}
