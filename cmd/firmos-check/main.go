package main

import (
	"fmt"

	"github.com/firmos/backend/internal/autonomy"
	"github.com/firmos/backend/internal/config"
	"github.com/firmos/backend/internal/core"
	"github.com/firmos/backend/internal/guardian"
	"github.com/firmos/backend/internal/incidents"
	"github.com/firmos/backend/internal/release"
)

type Component struct {
	Name string
	Test func() error
}

func main() {
	fmt.Println("\033[96mFirmOS Decision Engine - Pre-Flight Diagnostic v1.0\033[0m")
	fmt.Println("---------------------------------------------------------")

	components := []Component{
		{"Catalog (packs/agents)", checkCatalog},
		{"Autonomy Evaluator", checkAutonomy},
		{"Guardian Battery", checkGuardian},
		{"Release State Machine", checkReleaseWorkflow},
		{"Incident Circuit Breaker", checkIncidents},
	}

	for _, c := range components {
		fmt.Printf("Checking %-25s ", c.Name+"...")
		err := c.Test()
		if err != nil {
			fmt.Println("\033[31m[FAIL]\033[0m")
			fmt.Printf("  >> Error: %v\n", err)
		} else {
			fmt.Println("\033[32m[OK]\033[0m")
		}
	}

	fmt.Println("---------------------------------------------------------")
	fmt.Println("\033[96mStatus: System Ready for Agentic Traffic.\033[0m")
}

// --- Diagnostic Implementations ---

func checkCatalog() error {
	catalog, err := config.NewCatalog(config.CatalogConfig{})
	if err != nil {
		return err
	}
	if j, ok := catalog.PackJurisdiction("rw_tax"); !ok || j != core.JurisdictionRW {
		return fmt.Errorf("rw_tax resolved to %q", j)
	}
	if d, ok := catalog.AgentDomain(core.AgentPolicyGovernor); !ok || d != core.DomainGlobal {
		return fmt.Errorf("policy governor resolved to domain %q", d)
	}
	return nil
}

func checkAutonomy() error {
	decision, err := autonomy.NewEvaluator().Evaluate(autonomy.ActionContext{
		Jurisdiction:    core.JurisdictionRW,
		ServiceCategory: core.ServiceTax,
		WorkflowType:    "vat_filing",
		ExternalImpact:  true,
	})
	if err != nil {
		return err
	}
	if decision.Tier != autonomy.TierEscalate {
		return fmt.Errorf("external impact resolved to %s, want ESCALATE", decision.Tier)
	}
	return nil
}

func checkGuardian() error {
	catalog, err := config.NewCatalog(config.CatalogConfig{})
	if err != nil {
		return err
	}
	engine := guardian.NewEngine(catalog.PackJurisdictions(), catalog.EvidenceMinimums())
	report, err := engine.Run(guardian.WorkstreamContext{
		WorkstreamID: "diag-ws",
		PackID:       "mt_tax",
		Jurisdiction: core.JurisdictionRW,
	})
	if err != nil {
		return err
	}
	if report.Passed {
		return fmt.Errorf("cross-jurisdiction pack passed review")
	}
	return nil
}

func checkReleaseWorkflow() error {
	mgr := release.NewManager(release.NewMemoryStore(), nil, nil, nil, nil, nil)
	wf, err := mgr.Create(release.Request{
		ReleaseID:      "diag-rel",
		Type:           "client_delivery",
		PackID:         "rw_tax",
		WorkstreamID:   "diag-ws",
		RequesterAgent: "rw_tax_engine",
	})
	if err != nil {
		return err
	}
	// Authorize before QC must be refused as a no-op.
	wf, err = mgr.Authorize("diag-rel", core.AgentPolicyGovernor, nil)
	if err != nil {
		return err
	}
	if wf.CurrentStatus != release.StatusPending {
		return fmt.Errorf("authorize before QC moved status to %s", wf.CurrentStatus)
	}
	return nil
}

func checkIncidents() error {
	logSvc := incidents.NewLog(incidents.NewMemoryStore(), nil, nil, nil)
	inc, err := logSvc.Log(incidents.LogInput{
		Type:        incidents.PackLeakage,
		Description: "diagnostic leakage probe",
		AgentID:     "diag-agent",
	})
	if err != nil {
		return err
	}
	if inc.Severity != core.SeverityCritical {
		return fmt.Errorf("pack leakage severity is %s, want CRITICAL", inc.Severity)
	}
	if !logSvc.HasBlockingIncidents() {
		return fmt.Errorf("unresolved CRITICAL incident did not trip the breaker")
	}
	logSvc.Resolve(inc.ID, "diagnostic complete")
	if logSvc.HasBlockingIncidents() {
		return fmt.Errorf("resolved incident still trips the breaker")
	}
	return nil
}
