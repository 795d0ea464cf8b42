package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/yawn-go/mode"
	"github.com/khaledhikmat/yawn-go/pipeline"
	"github.com/khaledhikmat/yawn-go/service/camera"
	"github.com/khaledhikmat/yawn-go/service/camera/cv"
	"github.com/khaledhikmat/yawn-go/service/config"
	"github.com/khaledhikmat/yawn-go/service/data"
	"github.com/khaledhikmat/yawn-go/service/landmark"
	"github.com/khaledhikmat/yawn-go/service/lgr"
	"github.com/khaledhikmat/yawn-go/service/storage"
	"github.com/khaledhikmat/yawn-go/service/web"
	"github.com/khaledhikmat/yawn-go/service/webhook"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"detect":   mode.Detect,
	"simulate": mode.Simulate,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file loaded, using the environment as is", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	modeType := "detect"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// They can be overridden by the mode processor with different implementations
	// Config service
	cfgSvc := config.NewEnv()
	lgr.Setup(cfgSvc.GetLogLevel(), cfgSvc.GetLogsFolder())
	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)
	// Camera service
	var cameraSvc camera.IService
	if modeType == "simulate" {
		cameraSvc = cv.NewRandom(cfgSvc)
	} else {
		cameraSvc = cv.NewWebcam(cfgSvc)
	}
	// Landmark service
	landmarkSvc := landmark.NewHTTP(cfgSvc)
	// Storage service
	storageSvc := storage.NewLocal(cfgSvc)
	// Webhook service
	webhookSvc := webhook.NewHTTP(cfgSvc)

	svcs := pipeline.ServicesFactory{
		CfgSvc:      cfgSvc,
		DataSvc:     dataSvc,
		CameraSvc:   cameraSvc,
		LandmarkSvc: landmarkSvc,
		StorageSvc:  storageSvc,
		WebhookSvc:  webhookSvc,
	}

	// Decide on sinks
	sinks := []pipeline.Sink{
		pipeline.LogSink,
		pipeline.RecorderSink,
	}

	// Web service
	if cfgSvc.GetWebEnabled() {
		webSvc := web.NewFiber(cfgSvc, dataSvc)
		svcs.WebSvc = webSvc
		sinks = append(sinks, pipeline.BroadcastSink)

		go func() {
			err := webSvc.Start(canxCtx)
			if err != nil {
				lgr.Logger.Error(
					"web server exited",
					slog.Any("error", lgr.WithStack(err)),
				)
			}
		}()
	}

	// Create mode processor result
	modeProcResult := make(chan error)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, sinks)
	}()

	// Wait for cancellation or mode proc
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"yawn-go context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"yawn-go mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"yawn-go is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration or for the mode processor to finish
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"yawn-go shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)
			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"yawn-go mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			lgr.Logger.Info("yawn-go mode processor finished. Exiting now")
			return
		}
	}
}
