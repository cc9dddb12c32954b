package cron

import (
	"Warbler/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const defaultMediaCleanupSpec = "0 0 * * * *"

type Manager struct {
	engine           *cron.Cron
	mediaCleanupSpec string
	mediaCleanupJob  *job.MediaCleanupJob
}

func NewCronManager(mediaCleanupSpec string, mediaCleanupJob *job.MediaCleanupJob) *Manager {
	if mediaCleanupSpec == "" {
		mediaCleanupSpec = defaultMediaCleanupSpec
	}
	return &Manager{
		engine:           cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		mediaCleanupSpec: mediaCleanupSpec,
		mediaCleanupJob:  mediaCleanupJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.mediaCleanupSpec, s.mediaCleanupJob); err != nil {
		return err
	}
	return nil
}

// Entries 已注册的任务数
func (s *Manager) Entries() int {
	return len(s.engine.Entries())
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
