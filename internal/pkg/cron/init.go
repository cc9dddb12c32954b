package cron

import log "log/slog"

// InitCron 注册全部任务后启动引擎
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return err
	}
	log.Info("Cron Jobs starting...", "jobs", mgr.Entries())
	mgr.Start()
	return nil
}
