package database

import (
	"encoding/json"
	"fmt"
	"os"

	supabase "github.com/supabase-community/supabase-go"
)

// ============================================================================
// SUPABASE CLIENT - CRUD for the FirmOS governance tables
// ============================================================================

// SupabaseClient wraps the Supabase Go client with the FirmOS table
// operations: workstream snapshots, release workflows, and incidents.
type SupabaseClient struct {
	client *supabase.Client
}

// NewSupabaseClient creates a new Supabase client from the environment.
func NewSupabaseClient() (*SupabaseClient, error) {
	url := os.Getenv("SUPABASE_URL")
	key := os.Getenv("SUPABASE_SERVICE_KEY")

	if url == "" || key == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &SupabaseClient{client: client}, nil
}

// ============================================================================
// ROW MODELS
// ============================================================================

// WorkstreamRow mirrors the firmos_workstreams table. Payload carries the
// full snapshot as JSON; the flat columns exist for filtering.
type WorkstreamRow struct {
	WorkstreamID string          `json:"workstream_id"`
	PackID       string          `json:"pack_id"`
	Jurisdiction string          `json:"jurisdiction"`
	Payload      json.RawMessage `json:"payload"`
	UpdatedAt    string          `json:"updated_at,omitempty"` // String to handle Supabase timestamp format
}

// ReleaseRow mirrors the firmos_releases table. Payload is the full
// workflow including its decision log.
type ReleaseRow struct {
	ReleaseID    string          `json:"release_id"`
	WorkstreamID string          `json:"workstream_id"`
	PackID       string          `json:"pack_id"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

// IncidentRow mirrors the firmos_incidents table.
type IncidentRow struct {
	IncidentID string          `json:"incident_id"`
	Type       string          `json:"type"`
	Severity   string          `json:"severity"`
	AgentID    string          `json:"agent_id"`
	Resolved   bool            `json:"resolved"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  string          `json:"created_at,omitempty"`
}

// ============================================================================
// WORKSTREAM OPERATIONS
// ============================================================================

// UpsertWorkstream creates or replaces a workstream snapshot row.
func (sc *SupabaseClient) UpsertWorkstream(row *WorkstreamRow) error {
	var result []WorkstreamRow
	_, err := sc.client.From("firmos_workstreams").
		Upsert(row, "workstream_id", "", "").
		ExecuteTo(&result)
	return err
}

// GetWorkstream retrieves one workstream row. Returns nil (not error)
// when no row exists.
func (sc *SupabaseClient) GetWorkstream(workstreamID string) (*WorkstreamRow, error) {
	var rows []WorkstreamRow
	_, err := sc.client.From("firmos_workstreams").
		Select("*", "", false).
		Eq("workstream_id", workstreamID).
		ExecuteTo(&rows)

	if err != nil {
		return nil, fmt.Errorf("failed to get workstream: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListWorkstreams lists workstream rows, newest first.
func (sc *SupabaseClient) ListWorkstreams(limit int) ([]WorkstreamRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []WorkstreamRow
	_, err := sc.client.From("firmos_workstreams").
		Select("*", "", false).
		Order("updated_at", nil).
		Limit(limit, "").
		ExecuteTo(&rows)
	return rows, err
}

// ============================================================================
// RELEASE OPERATIONS
// ============================================================================

// UpsertRelease creates or replaces a release workflow row.
func (sc *SupabaseClient) UpsertRelease(row *ReleaseRow) error {
	var result []ReleaseRow
	_, err := sc.client.From("firmos_releases").
		Upsert(row, "release_id", "", "").
		ExecuteTo(&result)
	return err
}

// GetRelease retrieves one release row. Returns nil when no row exists.
func (sc *SupabaseClient) GetRelease(releaseID string) (*ReleaseRow, error) {
	var rows []ReleaseRow
	_, err := sc.client.From("firmos_releases").
		Select("*", "", false).
		Eq("release_id", releaseID).
		ExecuteTo(&rows)

	if err != nil {
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListReleases lists release rows with an optional status filter.
func (sc *SupabaseClient) ListReleases(status string, limit int) ([]ReleaseRow, error) {
	if limit <= 0 {
		limit = 50
	}
	query := sc.client.From("firmos_releases").
		Select("*", "", false).
		Order("updated_at", nil)
	if status != "" {
		query = query.Eq("status", status)
	}
	var rows []ReleaseRow
	_, err := query.Limit(limit, "").ExecuteTo(&rows)
	return rows, err
}

// ============================================================================
// INCIDENT OPERATIONS
// ============================================================================

// InsertIncident appends an incident row.
func (sc *SupabaseClient) InsertIncident(row *IncidentRow) error {
	var result []IncidentRow
	_, err := sc.client.From("firmos_incidents").
		Insert(row, false, "", "", "").
		ExecuteTo(&result)
	return err
}

// UpdateIncident replaces an incident row (used for resolution).
func (sc *SupabaseClient) UpdateIncident(row *IncidentRow) error {
	var result []IncidentRow
	_, err := sc.client.From("firmos_incidents").
		Update(row, "", "").
		Eq("incident_id", row.IncidentID).
		ExecuteTo(&result)
	return err
}

// GetIncident retrieves one incident row. Returns nil when no row exists.
func (sc *SupabaseClient) GetIncident(incidentID string) (*IncidentRow, error) {
	var rows []IncidentRow
	_, err := sc.client.From("firmos_incidents").
		Select("*", "", false).
		Eq("incident_id", incidentID).
		ExecuteTo(&rows)

	if err != nil {
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListIncidents lists incident rows, optionally only unresolved ones.
func (sc *SupabaseClient) ListIncidents(unresolvedOnly bool, limit int) ([]IncidentRow, error) {
	if limit <= 0 {
		limit = 100
	}
	query := sc.client.From("firmos_incidents").
		Select("*", "", false).
		Order("created_at", nil)
	if unresolvedOnly {
		query = query.Eq("resolved", "false")
	}
	var rows []IncidentRow
	_, err := query.Limit(limit, "").ExecuteTo(&rows)
	return rows, err
}
