// Command voicecall runs one realtime voice session against the clinic
// receptionist from a terminal. Microphone audio is read as raw 16-bit
// little-endian PCM at 24kHz mono from stdin; assistant audio is written to
// stdout in the same format, e.g.:
//
//	rec -q -t raw -r 24000 -e signed -b 16 -c 1 - | voicecall | play -q -t raw -r 24000 -e signed -b 16 -c 1 -
//
// Status text goes to stderr. Commands on the controlling terminal: "mute",
// "end".
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meeraclinic/clinic-ai-platform/internal/clinic"
	appconfig "github.com/meeraclinic/clinic-ai-platform/internal/config"
	"github.com/meeraclinic/clinic-ai-platform/internal/observability/metrics"
	"github.com/meeraclinic/clinic-ai-platform/internal/scheduling"
	"github.com/meeraclinic/clinic-ai-platform/internal/tools"
	"github.com/meeraclinic/clinic-ai-platform/internal/voice"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	doctorID := flag.Int("doctor", 0, "pin the session to one doctor ID")
	useWebSocket := flag.Bool("ws", false, "use the websocket transport instead of WebRTC")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.OpenAIAPIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	directory, err := clinic.LoadDirectory(cfg.DoctorsFile)
	if err != nil {
		logger.Error("failed to load doctor directory", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	scheduler := scheduling.New(scheduling.Config{
		Directory: directory,
		Store:     scheduling.NewFileStore(cfg.AppointmentsFile),
		Gaps: scheduling.GapPolicy{
			SuggestionGap: cfg.SuggestionGapMinutes,
			BookingGap:    cfg.BookingGapMinutes,
		},
		SlotDuration: cfg.SlotDurationMinutes,
		SameDayLead:  cfg.SameDayLeadMinutes,
		Logger:       logger,
		Metrics:      metrics.NewSchedulingMetrics(registry),
	})

	lock := tools.NewDoctorLock(*doctorID)
	dispatcher := tools.New(tools.Config{
		Scheduler: scheduler,
		Directory: directory,
		Lock:      lock,
		Logger:    logger,
	})

	var transport voice.Transport
	if *useWebSocket {
		endpoint := strings.Replace(cfg.RealtimeBaseURL, "https://", "wss://", 1)
		transport = voice.NewWebSocketTransport(endpoint, cfg.RealtimeModel, cfg.OpenAIAPIKey, logger)
	} else {
		negotiator := voice.NewNegotiator(cfg.RealtimeBaseURL, cfg.RealtimeModel, cfg.OpenAIAPIKey, nil, logger)
		transport = voice.NewWebRTCTransport(negotiator, logger)
	}

	session := voice.NewSession(voice.Config{
		Transport:       transport,
		Capture:         newStdinCapture(),
		Playback:        newStdoutSpeaker(),
		Dispatcher:      dispatcher,
		Lock:            lock,
		Voice:           cfg.Voice,
		VADThreshold:    cfg.VADThreshold,
		VADPrefix:       cfg.VADPrefixPadding,
		VADSilence:      cfg.VADSilenceDuration,
		Temperature:     float64(cfg.Temperature),
		MaxOutputTokens: cfg.MaxOutputTokens,
		EnergyFloor:     cfg.SpeechEnergyFloor,
		SilenceWindow:   cfg.SpeechSilenceWindow,
		Logger:          logger,
		Metrics:         metrics.NewVoiceMetrics(registry),
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = session.Start(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to start session", "error", err)
		fmt.Fprintln(os.Stderr, session.LastError())
		os.Exit(1)
	}

	// The control channel is up; wait for verification before going live.
	for session.State() != voice.StateVerified {
		if session.State() == voice.StateErrored || session.State() == voice.StateEnded {
			fmt.Fprintln(os.Stderr, session.LastError())
			os.Exit(1)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err := session.Begin(); err != nil {
		logger.Error("failed to begin call", "error", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "Call started. Type 'mute' or 'end'.")

	go func() {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return
		}
		scanner := bufio.NewScanner(tty)
		for scanner.Scan() {
			switch strings.TrimSpace(scanner.Text()) {
			case "mute":
				fmt.Fprintln(os.Stderr, "muted:", session.ToggleMute())
			case "end":
				session.End()
				return
			}
		}
	}()

	<-session.Done()
	for _, b := range session.Messages() {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", b.Role, b.Text)
	}
}
