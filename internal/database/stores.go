package database

import (
	"encoding/json"
	"fmt"

	"github.com/firmos/backend/internal/incidents"
	"github.com/firmos/backend/internal/release"
)

// ============================================================================
// SUPABASE-BACKED STORES
// ============================================================================

// SupabaseReleaseStore implements release.Store over firmos_releases.
// The full workflow travels in the payload column; the flat columns are
// derived on every write.
type SupabaseReleaseStore struct {
	client *SupabaseClient
}

// NewSupabaseReleaseStore creates a release store over the given client.
func NewSupabaseReleaseStore(client *SupabaseClient) *SupabaseReleaseStore {
	return &SupabaseReleaseStore{client: client}
}

// Put inserts or replaces the workflow row.
func (s *SupabaseReleaseStore) Put(wf *release.Workflow) error {
	payload, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshal workflow %s: %w", wf.Request.ReleaseID, err)
	}
	return s.client.UpsertRelease(&ReleaseRow{
		ReleaseID:    wf.Request.ReleaseID,
		WorkstreamID: wf.Request.WorkstreamID,
		PackID:       wf.Request.PackID,
		Status:       string(wf.CurrentStatus),
		Payload:      payload,
	})
}

// Get returns the workflow for releaseID. Missing rows and unreadable
// payloads both report not-found; the workflow manager treats both the
// same way.
func (s *SupabaseReleaseStore) Get(releaseID string) (*release.Workflow, bool) {
	row, err := s.client.GetRelease(releaseID)
	if err != nil || row == nil {
		return nil, false
	}
	var wf release.Workflow
	if err := json.Unmarshal(row.Payload, &wf); err != nil {
		return nil, false
	}
	return &wf, true
}

// List returns all stored workflows.
func (s *SupabaseReleaseStore) List() []*release.Workflow {
	rows, err := s.client.ListReleases("", 0)
	if err != nil {
		return nil
	}
	out := make([]*release.Workflow, 0, len(rows))
	for _, row := range rows {
		var wf release.Workflow
		if err := json.Unmarshal(row.Payload, &wf); err != nil {
			continue
		}
		out = append(out, &wf)
	}
	return out
}

// SupabaseIncidentStore implements incidents.Store over firmos_incidents.
type SupabaseIncidentStore struct {
	client *SupabaseClient
}

// NewSupabaseIncidentStore creates an incident store over the given client.
func NewSupabaseIncidentStore(client *SupabaseClient) *SupabaseIncidentStore {
	return &SupabaseIncidentStore{client: client}
}

// Append inserts a new incident row.
func (s *SupabaseIncidentStore) Append(inc *incidents.Incident) error {
	row, err := incidentRow(inc)
	if err != nil {
		return err
	}
	return s.client.InsertIncident(row)
}

// Get returns one incident by id.
func (s *SupabaseIncidentStore) Get(id string) (*incidents.Incident, bool) {
	row, err := s.client.GetIncident(id)
	if err != nil || row == nil {
		return nil, false
	}
	var inc incidents.Incident
	if err := json.Unmarshal(row.Payload, &inc); err != nil {
		return nil, false
	}
	return &inc, true
}

// List returns all incidents.
func (s *SupabaseIncidentStore) List() []*incidents.Incident {
	rows, err := s.client.ListIncidents(false, 0)
	if err != nil {
		return nil
	}
	out := make([]*incidents.Incident, 0, len(rows))
	for _, row := range rows {
		var inc incidents.Incident
		if err := json.Unmarshal(row.Payload, &inc); err != nil {
			continue
		}
		out = append(out, &inc)
	}
	return out
}

// Update replaces an existing incident row. Unknown ids are a no-op, to
// match the in-memory store's contract.
func (s *SupabaseIncidentStore) Update(inc *incidents.Incident) error {
	existing, err := s.client.GetIncident(inc.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	row, err := incidentRow(inc)
	if err != nil {
		return err
	}
	return s.client.UpdateIncident(row)
}

func incidentRow(inc *incidents.Incident) (*IncidentRow, error) {
	payload, err := json.Marshal(inc)
	if err != nil {
		return nil, fmt.Errorf("marshal incident %s: %w", inc.ID, err)
	}
	return &IncidentRow{
		IncidentID: inc.ID,
		Type:       string(inc.Type),
		Severity:   string(inc.Severity),
		AgentID:    inc.AgentID,
		Resolved:   inc.Resolved(),
		Payload:    payload,
	}, nil
}
