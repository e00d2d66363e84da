// Package floormetrics periodically samples the state of the floor (open
// tables, occupied rooms, unpaid invoices) and pushes it to a collector.
package floormetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"gorm.io/gorm"
)

// Snapshot is one sample of the floor.
type Snapshot struct {
	OpenTickets    map[string]int64
	LockedTickets  int64
	OccupiedStays  int64
	UnpaidInvoices int64
}

type Gauges struct {
	openTickets    *prometheus.GaugeVec
	lockedTickets  prometheus.Gauge
	occupiedStays  prometheus.Gauge
	unpaidInvoices prometheus.Gauge
}

func NewGauges(registry *prometheus.Registry) *Gauges {
	g := &Gauges{
		openTickets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "innkeeper_open_tickets",
			Help: "Tickets still taking lines, by location.",
		}, []string{"location"}),
		lockedTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "innkeeper_locked_tickets",
			Help: "Settled tickets whose invoice is still unpaid.",
		}),
		occupiedStays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "innkeeper_occupied_stays",
			Help: "Reservations checked in and not yet checked out.",
		}),
		unpaidInvoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "innkeeper_unpaid_invoices",
			Help: "Live invoices not marked paid.",
		}),
	}
	registry.MustRegister(g.openTickets, g.lockedTickets, g.occupiedStays, g.unpaidInvoices)
	return g
}

func (g *Gauges) Set(s Snapshot) {
	g.openTickets.Reset()
	for _, loc := range refdomain.LocationEntries() {
		g.openTickets.WithLabelValues(loc.Code).Set(float64(s.OpenTickets[loc.Code]))
	}
	g.lockedTickets.Set(float64(s.LockedTickets))
	g.occupiedStays.Set(float64(s.OccupiedStays))
	g.unpaidInvoices.Set(float64(s.UnpaidInvoices))
}

type locationCount struct {
	Location refdomain.Location
	Total    int64
}

// Collect reads the current floor state. Reads are plain counts and take no
// locks.
func Collect(ctx context.Context, db *gorm.DB) (Snapshot, error) {
	snap := Snapshot{OpenTickets: map[string]int64{}}
	conn := db.WithContext(ctx)

	var perLocation []locationCount
	err := conn.Raw(`SELECT ticket_location AS location, COUNT(*) AS total
		FROM temporal_tickets
		WHERE closed_at IS NULL AND ticket_status = ?
		GROUP BY ticket_location`, "OPEN").Scan(&perLocation).Error
	if err != nil {
		return Snapshot{}, err
	}
	for _, row := range perLocation {
		snap.OpenTickets[row.Location.Code()] = row.Total
	}

	if err := conn.Table("temporal_tickets").
		Where("closed_at IS NULL AND ticket_status = ?", "LOCKED").
		Count(&snap.LockedTickets).Error; err != nil {
		return Snapshot{}, err
	}
	if err := conn.Table("reservations").
		Where("is_deleted = ? AND occupied = ? AND checked_out_at IS NULL", false, true).
		Count(&snap.OccupiedStays).Error; err != nil {
		return Snapshot{}, err
	}
	if err := conn.Table("simple_invoices").
		Where("is_deleted = ? AND paid = ?", false, false).
		Count(&snap.UnpaidInvoices).Error; err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func interval(seconds int) time.Duration {
	if seconds <= 0 {
		return time.Minute
	}
	return time.Duration(seconds) * time.Second
}
