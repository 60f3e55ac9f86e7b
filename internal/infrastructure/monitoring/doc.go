/*
Package monitoring provides Prometheus metrics for the shell.

# Overview

Each Metrics value owns its own registry so several shells (or tests) can
coexist in one process. The diagnostics server exposes the registry at
/metrics.

# Metrics

  - tweetduck_navigation_decisions_total{rule,action}
  - tweetduck_bridge_messages_total{command,outcome}
  - tweetduck_readiness_polls_total
  - tweetduck_readiness_seconds{signal}
  - tweetduck_script_evaluations_total{outcome}
  - tweetduck_ui_version_changes_total{version}
  - tweetduck_update_checks_total{outcome}
  - tweetduck_http_requests_total{method,path,status}
  - tweetduck_uptime_seconds

# Usage

	metrics := monitoring.NewMetrics()
	metrics.RecordDecision("app-subdomain", "allow")
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
