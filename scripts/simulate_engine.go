package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Walks one RW tax engagement end to end against a running FirmOS server:
// autonomy evaluation, workstream registration, Guardian QC, and the full
// release workflow. Useful as a smoke test against a local instance.

var baseURL = "http://localhost:8080"

func post(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e map[string]string
		json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s: %s", resp.Status, e["error"])
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func main() {
	if v := os.Getenv("FIRMOS_URL"); v != "" {
		baseURL = v
	}

	fmt.Println("🤖 Agent Starting: rw_tax_engine")
	fmt.Println("📡 Connecting to FirmOS Decision Engine...")
	time.Sleep(1 * time.Second)

	// 1. Ask the autonomy evaluator how much rope we get.
	var decision struct {
		Tier         string   `json:"tier"`
		Reasoning    string   `json:"reasoning"`
		RulesApplied []string `json:"rules_applied"`
	}
	err := post("/api/autonomy/evaluate", map[string]interface{}{
		"jurisdiction":                "RW",
		"service_category":            "tax",
		"workflow_type":               "vat_filing",
		"novelty_score":               20,
		"evidence_completeness_score": 85,
		"has_approved_template":       true,
	}, &decision)
	if err != nil {
		log.Fatalf("❌ Autonomy evaluation failed: %v", err)
	}
	fmt.Printf("\n🤔 Intent Formed: file Q3 VAT return\n")
	fmt.Printf("🎚️  Autonomy tier: %s (%v)\n", decision.Tier, decision.RulesApplied)

	// 2. Register the workstream snapshot the Guardian will review.
	ws := map[string]interface{}{
		"workstream_id": "ws-sim-001",
		"pack_id":       "rw_tax",
		"jurisdiction":  "RW",
		"tasks": []map[string]interface{}{
			{"id": "t1", "name": "Prepare VAT return", "status": "completed"},
		},
		"documents": []map[string]interface{}{
			{"id": "d1", "name": "VAT Return Q3", "status": "approved", "hash": "abc", "stored_hash": "abc"},
		},
	}
	if err := post("/api/workstreams", ws, nil); err != nil {
		log.Fatalf("❌ Workstream registration failed: %v", err)
	}
	fmt.Println("✅ Workstream ws-sim-001 registered.")

	// 3. Open a release and push it through QC.
	err = post("/api/releases", map[string]interface{}{
		"release_id":      "rel-sim-001",
		"type":            "client_delivery",
		"pack_id":         "rw_tax",
		"workstream_id":   "ws-sim-001",
		"requester_agent": "rw_tax_engine",
	}, nil)
	if err != nil {
		log.Fatalf("❌ Release creation failed: %v", err)
	}

	var wf struct {
		CurrentStatus string `json:"current_status"`
	}
	if err := post("/api/releases/rel-sim-001/qc", nil, &wf); err != nil {
		log.Fatalf("❌ QC run failed: %v", err)
	}
	fmt.Printf("🛡️  Guardian QC complete: %s\n", wf.CurrentStatus)
	if wf.CurrentStatus != "qc_passed" {
		log.Fatalf("⛔ QC did not pass, stopping here")
	}

	// 4. Governor authorization, then execution.
	err = post("/api/releases/rel-sim-001/authorize", map[string]interface{}{
		"decided_by": "marco",
		"conditions": []string{"deliver during business hours"},
	}, &wf)
	if err != nil {
		log.Fatalf("❌ Authorization failed: %v", err)
	}
	fmt.Printf("🎟️  Authorized by marco: %s\n", wf.CurrentStatus)

	err = post("/api/releases/rel-sim-001/execute", map[string]interface{}{
		"decided_by": "marco",
		"notes":      "delivered via client portal",
	}, &wf)
	if err != nil {
		log.Fatalf("❌ Execution failed: %v", err)
	}
	fmt.Printf("🚀 Release executed: %s\n", wf.CurrentStatus)
	fmt.Println("✅ Engagement delivered.")
}
