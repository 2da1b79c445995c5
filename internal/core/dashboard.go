package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"careboard/pkg"
)

// DefaultCriteria is the filter applied when the dashboard first opens: only
// critical patients, any cancer type, no name filter.
func DefaultCriteria() pkg.FilterCriteria {
	return pkg.FilterCriteria{CancerType: pkg.All, Alert: pkg.AlertCritical}
}

// FilterPatients returns the records matching c, in their original order.
// The input slice is never modified.  An empty result is a valid outcome.
func FilterPatients(patients []pkg.PatientRecord, c pkg.FilterCriteria) []pkg.PatientRecord {
	name := strings.ToLower(c.Name)
	out := make([]pkg.PatientRecord, 0, len(patients))
	for _, p := range patients {
		if !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if c.CancerType != pkg.All && p.CancerType != c.CancerType {
			continue
		}
		if c.Alert != pkg.AlertAll && p.AlertStatus != c.Alert {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CancerTypes returns the options of the cancer type selector: the All
// sentinel followed by the sorted, distinct labels present in patients.
func CancerTypes(patients []pkg.PatientRecord) []string {
	seen := make(map[string]struct{}, len(patients))
	types := make([]string, 0, len(patients))
	for _, p := range patients {
		if _, ok := seen[p.CancerType]; ok {
			continue
		}
		seen[p.CancerType] = struct{}{}
		types = append(types, p.CancerType)
	}
	sort.Strings(types)
	return append([]string{pkg.All}, types...)
}

// Stats counts critical patients over the whole list.
func Stats(patients []pkg.PatientRecord) pkg.DashboardStats {
	st := pkg.DashboardStats{TotalPatients: len(patients)}
	for _, p := range patients {
		if p.Critical() {
			st.CriticalCount++
		}
	}
	if st.TotalPatients > 0 {
		pct := float64(st.CriticalCount) / float64(st.TotalPatients) * 100
		st.CriticalPercent = math.Round(pct*100) / 100
	}
	return st
}

// Paginate applies offset and limit to an already filtered list.
func Paginate(patients []pkg.PatientRecord, limit, offset int) []pkg.PatientRecord {
	if offset >= len(patients) {
		return []pkg.PatientRecord{}
	}
	end := offset + limit
	if end > len(patients) {
		end = len(patients)
	}
	return patients[offset:end]
}

// PatientByID looks up a record by its identifier.
func PatientByID(patients []pkg.PatientRecord, id string) (pkg.PatientRecord, bool) {
	for _, p := range patients {
		if p.ID == id {
			return p, true
		}
	}
	return pkg.PatientRecord{}, false
}

// ParseAlertSelector converts user input into an alert selector.  Matching is
// case-insensitive; an empty string yields def.
func ParseAlertSelector(s string, def pkg.AlertStatus) (pkg.AlertStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case string(pkg.AlertCritical):
		return pkg.AlertCritical, nil
	case string(pkg.AlertOK):
		return pkg.AlertOK, nil
	case pkg.All:
		return pkg.AlertAll, nil
	}
	return "", fmt.Errorf("unknown alert selector %q", s)
}

// Dashboard holds the patient list and the current filter criteria and keeps
// the derived values (visible patients, cancer type options) in sync with
// them.  All getters return copies.
type Dashboard struct {
	mu       sync.RWMutex
	patients []pkg.PatientRecord
	criteria pkg.FilterCriteria
	visible  []pkg.PatientRecord
	types    []string
}

// NewDashboard builds a dashboard over patients using DefaultCriteria.
func NewDashboard(patients []pkg.PatientRecord) *Dashboard {
	d := &Dashboard{criteria: DefaultCriteria()}
	d.SetPatients(patients)
	return d
}

// SetPatients replaces the patient list and recomputes every derived value.
func (d *Dashboard) SetPatients(patients []pkg.PatientRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patients = append([]pkg.PatientRecord(nil), patients...)
	d.types = CancerTypes(d.patients)
	d.visible = FilterPatients(d.patients, d.criteria)
}

// SetCriteria replaces all filter criteria at once.
func (d *Dashboard) SetCriteria(c pkg.FilterCriteria) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.criteria = c
	d.visible = FilterPatients(d.patients, d.criteria)
}

func (d *Dashboard) SetNameFilter(name string) {
	d.update(func(c *pkg.FilterCriteria) { c.Name = name })
}

func (d *Dashboard) SetCancerTypeFilter(cancerType string) {
	d.update(func(c *pkg.FilterCriteria) { c.CancerType = cancerType })
}

func (d *Dashboard) SetAlertFilter(alert pkg.AlertStatus) {
	d.update(func(c *pkg.FilterCriteria) { c.Alert = alert })
}

func (d *Dashboard) update(fn func(*pkg.FilterCriteria)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.criteria)
	d.visible = FilterPatients(d.patients, d.criteria)
}

// Criteria returns the current filter criteria.
func (d *Dashboard) Criteria() pkg.FilterCriteria {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.criteria
}

// Visible returns the patients matching the current criteria.
func (d *Dashboard) Visible() []pkg.PatientRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]pkg.PatientRecord, len(d.visible))
	copy(out, d.visible)
	return out
}

// CancerTypes returns the cancer type selector options.
func (d *Dashboard) CancerTypes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.types...)
}

// Stats returns alert counts over the full list, ignoring the criteria.
func (d *Dashboard) Stats() pkg.DashboardStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats(d.patients)
}
