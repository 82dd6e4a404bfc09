// Package health implements liveness and readiness probes for the admin
// HTTP server.
//
// Liveness only reports that the process is serving HTTP. Readiness runs
// every registered CheckFunc concurrently, each bounded by the checker's
// timeout, and reports 503 when any of them fails. StoreCheck, ArchiveCheck
// and RunningCheck adapt the archivist's components to CheckFuncs:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("store", health.StoreCheck(store))
//	checker.RegisterCheck("archive", health.ArchiveCheck(archives))
//	checker.RegisterCheck("orchestrator", health.RunningCheck(orch))
//	health.Mount(mux, checker, health.Paths{}, version.Info())
package health
