// Package main hosts the watcher entrypoint.
//
// Architecture overview:
//   - Configuration: a .env file (if any) is loaded first, then Viper reads an optional YAML file and WATCHER_*
//     environment variables. TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are honoured for compatibility.
//   - Cycle loop: internal/scheduler.Scheduler runs fetch -> extract -> evaluate -> persist -> sleep forever, one
//     cycle at a time, sleeping a random 30-50s between cycles.
//   - Fetch: internal/fetcher/headless drives Chrome via chromedp, applying the identity profile and the stored
//     cookies before navigation and waiting for the post marker to render.
//   - State: the seen-ID ledger (seen.json) and cookie jar (cookies.json) live in a local directory or a GCS bucket.
//   - Alerts: internal/alert posts to the Telegram Bot API; without credentials alerts are only logged.
//   - Observability: zap logs every cycle and item; Prometheus metrics and health probes are served when
//     server.addr is set.
//
// Quick checklist:
//   - Set TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID (or WATCHER_ALERT_BOT_TOKEN / WATCHER_ALERT_CHAT_ID).
//   - Run locally: go run ./cmd/watcher --config watcher.yaml
//   - SIGINT/SIGTERM stops the loop after the current step; state already persisted stays on disk.
package main
