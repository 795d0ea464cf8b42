package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/pipeline"
	"github.com/khaledhikmat/yawn-go/service/data"
	"github.com/khaledhikmat/yawn-go/service/lgr"
)

type Processor func(canxCtx context.Context,
	svcs pipeline.ServicesFactory,
	sinks []pipeline.Sink) error

func procStats(datasvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.PollerStats:
		procPollerStats(datasvc, stats)
	case model.SinkStats:
		procSinkStats(datasvc, stats)
	case model.SessionStats:
		procSessionStats(datasvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procPollerStats(datasvc data.IService, stats model.PollerStats) {
	err := datasvc.NewPollerStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store poller stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procSinkStats(datasvc data.IService, stats model.SinkStats) {
	err := datasvc.NewSinkStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store sink stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procSessionStats(datasvc data.IService, stats model.SessionStats) {
	lgr.Logger.Debug(
		"session heartbeat",
		slog.String("session", stats.ID),
		slog.Int("yawns", stats.Yawns),
		slog.String("mood", stats.Mood),
	)

	err := datasvc.NewSessionStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store session stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	if e, ok := err.(error); ok {
		lgr.Logger.Error(
			"pipeline error",
			slog.Any("error", lgr.WithStack(e)),
		)
	}

	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
