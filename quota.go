package conversation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
)

const (
	mebibyte = 1024 * 1024
	// Above this many Mo the quota is shown in Go.
	gigaThreshold = 2000
)

// Usage is the storage quota as shown to the user: Max and Used share Unit.
type Usage struct {
	Max  float64
	Used float64
	Unit string
}

// Quota tracks the attachment storage of the signed-in user.
type Quota struct {
	backend Backend
	me      string

	mu    sync.RWMutex
	usage Usage
}

func newQuota(b Backend, me string) *Quota {
	return &Quota{
		backend: b,
		me:      me,
		usage:   Usage{Max: 1, Used: 0, Unit: "Mo"},
	}
}

// Usage returns the last known usage.
func (q *Quota) Usage() Usage {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.usage
}

// Refresh reloads the usage. Values are whole Mo, or Go with one decimal
// when the quota exceeds 2000 Mo.
func (q *Quota) Refresh(ctx context.Context) error {
	raw, err := q.backend.Quota(ctx, q.me)
	if err != nil {
		return fmt.Errorf("conversation: quota: %w", err)
	}

	u := Usage{
		Max:  float64(raw.Quota) / mebibyte,
		Used: float64(raw.Storage) / mebibyte,
		Unit: "Mo",
	}
	if u.Max > gigaThreshold {
		u.Max = math.Round(u.Max/1024*10) / 10
		u.Used = math.Round(u.Used/1024*10) / 10
		u.Unit = "Go"
	} else {
		u.Max = math.Round(u.Max)
		u.Used = math.Round(u.Used)
	}

	q.mu.Lock()
	q.usage = u
	q.mu.Unlock()
	return nil
}

// DataUnit is a size scaled to a readable order of magnitude.
type DataUnit struct {
	Nb    float64
	Order string
}

// AppropriateDataUnit scales bytes by 1024 until it drops below 1024 or
// reaches To.
func AppropriateDataUnit(bytes float64, t Translator) DataUnit {
	orders := []string{translate(t, KeyByte), "Ko", "Mo", "Go", "To"}
	nb, order := bytes, 0
	for nb >= 1024 && order < len(orders)-1 {
		nb /= 1024
		order++
	}
	return DataUnit{Nb: nb, Order: orders[order]}
}

// FormatSize renders bytes with one decimal at most, e.g. "1.5 Mo".
func FormatSize(bytes float64, t Translator) string {
	u := AppropriateDataUnit(bytes, t)
	return strconv.FormatFloat(math.Round(u.Nb*10)/10, 'f', -1, 64) + " " + u.Order
}
