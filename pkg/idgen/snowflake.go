package idgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Layout, high to low:
//
//	0 | 41 bit ms since epoch | 10 bit worker | 12 bit sequence
//
// Every row id in the marketplace tables comes from here, so ids stay
// unique across server and worker processes as long as their worker ids
// differ.
const (
	epoch       = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerBits  = 10
	seqBits     = 12
	maxWorkerID = 1<<workerBits - 1
	seqMask     = 1<<seqBits - 1
)

type Snowflake struct {
	mu     sync.Mutex
	worker int64
	lastMs int64
	seq    int64
	clock  func() int64
}

var (
	std     *Snowflake
	stdOnce sync.Once
)

// NewSnowflake returns a generator for workerID in [0, 1023].
func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("idgen: worker id %d outside 0-%d", workerID, maxWorkerID)
	}
	return &Snowflake{
		worker: workerID,
		clock:  func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Init sets up the process-wide generator. Later calls are ignored.
func Init(workerID int64) error {
	var err error
	stdOnce.Do(func() {
		std, err = NewSnowflake(workerID)
	})
	return err
}

func NextID() int64 {
	if std == nil {
		_ = Init(1)
	}
	return std.Generate()
}

// Generate never hands out the same id twice. If the wall clock steps
// back (NTP slew) it keeps counting inside the last millisecond it saw
// instead of reusing an earlier one.
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.clock()
	if ms < s.lastMs {
		ms = s.lastMs
	}

	if ms == s.lastMs {
		s.seq = (s.seq + 1) & seqMask
		if s.seq == 0 {
			for ms <= s.lastMs {
				ms = s.clock()
			}
		}
	} else {
		s.seq = 0
	}
	s.lastMs = ms

	return (ms-epoch)<<(workerBits+seqBits) | s.worker<<seqBits | s.seq
}

// CreatedAt recovers the generation time embedded in id.
func CreatedAt(id int64) time.Time {
	return time.UnixMilli(id>>(workerBits+seqBits) + epoch)
}

// GenerateRequestID tags an inbound request for log correlation.
func GenerateRequestID() string {
	return uuid.NewString()
}
