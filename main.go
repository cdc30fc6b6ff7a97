package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"pitchperfect/analyzer"
	"pitchperfect/audio"
	"pitchperfect/doctor"
	"pitchperfect/encoder"
	"pitchperfect/fault"
	"pitchperfect/log"
	"pitchperfect/retry"
	"pitchperfect/scorer"
	"pitchperfect/shutdown"
	"pitchperfect/transcriber"
)

var version = "dev"

const (
	transcribeLimitPerMinute = 10
	minTakeDuration          = 300 * time.Millisecond
	avgPitchWindowS          = 5.0
)

// app holds the per-process services. Everything the take lifecycle needs is
// injected here; nothing lives in package globals except the TUI program.
type app struct {
	transcriber transcriber.Transcriber
	recorder    *audio.Recorder
	worker      *analyzer.Worker
	agg         *analyzer.Aggregator
	retrier     *retry.Retrier
	limiter     *retry.RateLimiter
	cfg         analyzer.Config

	category scorer.Category
	lang     string
	format   string
	copyText bool
	userID   string

	scoreMu sync.Mutex // guards history and takes
	history []string
	takes   int
}

func main() {
	run()
}

func run() {
	godotenv.Load() // .env is optional

	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	objectionFlag := flag.String("objection", "Price", "Objection category to practice (price, trust, timing, authority, competition, need)")
	langFlag := flag.String("lang", "en", "Language code for transcription (e.g., en, es, fr). Empty = auto-detect")
	formatFlag := flag.String("format", "flac", "Upload format (only flac is supported)")
	takeFlag := flag.String("take", "", "Analyze a WAV file offline instead of live recording")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	noCopyFlag := flag.Bool("nocopy", false, "Do not copy transcripts to the clipboard")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("pitchperfect %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *doctorFlag {
		wavFile := ""
		if len(flag.Args()) > 0 {
			wavFile = flag.Args()[0]
		}
		os.Exit(doctor.Run(wavFile))
	}

	trans, err := transcriber.New()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *langFlag != "" {
		trans.SetLanguage(*langFlag)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	a := &app{
		transcriber: trans,
		worker:      analyzer.NewWorker(analyzer.DefaultConfig()),
		agg:         analyzer.NewAggregator(),
		retrier:     retry.New(retry.DefaultConfig()),
		limiter:     retry.NewRateLimiter(),
		cfg:         analyzer.DefaultConfig(),
		category:    scorer.ParseCategory(*objectionFlag),
		lang:        *langFlag,
		format:      *formatFlag,
		copyText:    !*noCopyFlag,
		userID:      uuid.NewString(),
	}
	defer a.worker.Close()

	log.SessionStart(trans.Name(), string(a.category))

	if *takeFlag != "" {
		os.Exit(a.runOfflineTake(*takeFlag))
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			fmt.Printf("Warning: device %q not found, using system default\n", *deviceFlag)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	a.recorder = audio.NewRecorder(ctx, selectedDevice, audio.DefaultCaptureConfig(encoder.SampleRate))
	defer a.recorder.Stop()

	toggle := make(chan struct{}, 1)

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(toggle)
	tuiMu.Unlock()

	tuiDone := make(chan struct{})
	go func() {
		defer close(tuiDone)
		if _, err := tuiProgram.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
		}
	}()

	tuiSend(ModeLineMsg{Text: modeLineText(a)})
	tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)

	var current *take
	for {
		select {
		case <-toggle:
			if current == nil {
				t, err := a.startTake(toggle)
				if err != nil {
					reportTakeError(err)
					continue
				}
				current = t
			} else {
				a.finishTake(current)
				current = nil
			}

		case <-sigChan:
			if current != nil {
				a.finishTake(current)
			}
			log.SessionEnd(a.takeCount())
			tuiProgram.Quit()
			<-tuiDone
			return

		case <-tuiDone:
			if current != nil {
				a.finishTake(current)
			}
			log.SessionEnd(a.takeCount())
			return
		}
	}
}

func (a *app) takeCount() int {
	a.scoreMu.Lock()
	defer a.scoreMu.Unlock()
	return a.takes
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

func modeLineText(a *app) string {
	providerLabel := a.transcriber.Name()
	if lang := a.transcriber.GetLanguage(); lang != "" {
		providerLabel += " (" + lang + ")"
	}
	return fmt.Sprintf("[%s | %s | %s]", a.category, a.format, providerLabel)
}

func reportTakeError(err error) {
	if err == nil {
		return
	}
	logToTUI("Error: %v", err)
	log.Errorf("take error: %v", err)
}

// take is the state of one live recording.
type take struct {
	id          string
	sess        transcriber.Session
	source      *analyzer.FrameSource
	resultsDone chan struct{}
	stopTick    chan struct{}
	start       time.Time
	speechTick  atomic.Bool
}

func (a *app) startTake(toggle chan<- struct{}) (*take, error) {
	if ok, cooldown := a.limiter.Allow(a.userID, "transcribe", transcribeLimitPerMinute); !ok {
		return nil, fault.Wrap(fault.RateLimited, "take.start",
			fmt.Errorf("too many takes, retry in %s", cooldown.Round(time.Second)))
	}

	sess, err := a.transcriber.NewSession(context.Background(), transcriber.SessionConfig{
		Format:   a.format,
		Language: a.lang,
		Retry:    a.retrier,
	})
	if err != nil {
		return nil, err
	}

	t := &take{
		id:          uuid.NewString(),
		sess:        sess,
		resultsDone: make(chan struct{}),
		stopTick:    make(chan struct{}),
		start:       time.Now(),
	}

	a.agg.Start()

	go func() {
		defer close(t.resultsDone)
		for r := range a.worker.Results() {
			if r.Err != nil {
				log.Warnf("analysis error: %v", r.Err)
			}
			if r.Point != nil {
				a.agg.Ingest(*r.Point)
				t.speechTick.Store(true)
				tuiSend(PitchMsg{
					Pitch:      r.Point.Pitch,
					Volume:     r.Point.Volume,
					Confidence: r.Point.Confidence,
					AvgPitch:   a.agg.AverageOverWindow(avgPitchWindowS),
				})
			}
			if r.Complete {
				return
			}
		}
	}()

	t.source = analyzer.NewFrameSource(a.cfg, analyzer.DefaultFrameInterval, func(f analyzer.Frame) {
		a.worker.Analyze(f)
	})

	_, err = a.recorder.Start(func(data []byte, frameCount uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		sess.Feed(pcm)
		t.source.Push(data)
	})
	if err != nil {
		t.source.Stop()
		a.worker.Finalize()
		<-t.resultsDone
		a.agg.Finalize()
		go sess.Close()
		return nil, err
	}

	// Drain streaming updates; batch sessions close the channel on Close.
	go func() {
		for range sess.Updates() {
		}
	}()

	log.Info("take_start: " + t.id)
	tuiSend(RecordingStartMsg{})

	mon := newSilenceMonitor()
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stopTick:
				return
			case <-ticker.C:
				tuiSend(RecordingTickMsg{Duration: time.Since(t.start).Seconds()})
				switch mon.Tick(t.speechTick.Swap(false)) {
				case SilenceWarn, SilenceRepeat:
					log.Info("no_voice_warning")
					tuiSend(NoVoiceWarningMsg{})
				case SilenceWarnClear:
					tuiSend(VoiceClearedMsg{})
				case SilenceAutoClose:
					log.Info("silence_auto_close")
					select {
					case toggle <- struct{}{}:
					default:
					}
					return
				}
			}
		}
	}()

	return t, nil
}

func (a *app) finishTake(t *take) {
	close(t.stopTick)
	a.recorder.Stop()
	t.source.Stop()
	a.worker.Finalize()
	<-t.resultsDone
	a.agg.Finalize()

	log.Info("take_stop: " + t.id)
	tuiSend(RecordingStopMsg{})

	points := a.agg.Series()
	var avgVolume float64
	for _, p := range points {
		avgVolume += p.Volume
	}
	if len(points) > 0 {
		avgVolume /= float64(len(points))
	}
	avgPitch := a.agg.AverageOverWindow(time.Since(t.start).Seconds() + 1)
	log.PitchSummary(t.id, len(points), a.agg.Dropped(), avgPitch, avgVolume)

	if time.Since(t.start) < minTakeDuration {
		go t.sess.Close() // too short to score, just release the session
		return
	}

	go a.scoreTake(t)
}

func (a *app) scoreTake(t *take) {
	result, err := t.sess.Close()
	if err != nil {
		log.Errorf("transcription error: %v", err)
		logToTUI("Transcription failed (%s): %v", fault.KindOf(err), err)
		return
	}

	a.scoreMu.Lock()
	defer a.scoreMu.Unlock()
	a.takes++

	if result.RateLimit != "" && result.RateLimit != "?/?" {
		log.Info("rate_limit: " + result.RateLimit)
		tuiSend(RateLimitMsg{Text: "requests: " + result.RateLimit + " remaining"})
	}

	if result.NoSpeech {
		log.Info("no_speech")
		tuiSend(FeedbackMsg{NoSpeech: true, Metrics: result.Metrics})
		return
	}

	fb := scorer.Score(result.Text, a.category, a.history...)
	a.history = append(a.history, result.Text)

	copied := false
	if a.copyText {
		if err := clipboard.WriteAll(result.Text); err != nil {
			log.Warnf("clipboard copy failed: %v", err)
		} else {
			copied = true
		}
	}

	log.TranscriptionText(result.Text)
	log.FeedbackScore(t.id, string(a.category), fb.Score,
		fb.Tone.Rating, fb.Clarity.Rating, fb.ObjectionHandling.Rating)
	if bs := result.Batch; bs != nil {
		log.TranscriptionMetrics(log.Metrics{
			AudioLengthS:     bs.AudioLengthS,
			RawSizeKB:        bs.RawSizeKB,
			CompressedSizeKB: bs.CompressedSizeKB,
			CompressionPct:   bs.CompressionPct,
			EncodeTimeMs:     bs.EncodeTimeMs,
			DNSTimeMs:        bs.DNSTimeMs,
			TLSTimeMs:        bs.TLSTimeMs,
			TTFBMs:           bs.TTFBMs,
			TotalTimeMs:      bs.TotalTimeMs,
			MemoryAllocMB:    result.MemoryAllocMB,
			MemoryPeakMB:     result.MemoryPeakMB,
		}, "batch", a.format, a.transcriber.Name(), bs.ConnReused, bs.TLSProtocol)
		log.Confidence(bs.Confidence)
	}

	tuiSend(FeedbackMsg{
		Result:  fb,
		Text:    result.Text,
		Copied:  copied,
		Metrics: result.Metrics,
	})
}

// runOfflineTake replays a WAV file through the full pipeline: framing,
// pitch analysis, transcription and scoring, printing to stdout.
func (a *app) runOfflineTake(wavPath string) int {
	fakeCtx, err := audio.NewFakeContext(wavPath, false)
	if err != nil {
		fmt.Printf("Error loading WAV: %v\n", err)
		return 1
	}
	a.recorder = audio.NewRecorder(fakeCtx, nil, audio.DefaultCaptureConfig(encoder.SampleRate))

	sess, err := a.transcriber.NewSession(context.Background(), transcriber.SessionConfig{
		Format:   a.format,
		Language: a.lang,
		Retry:    a.retrier,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	go func() {
		for range sess.Updates() {
		}
	}()

	a.agg.Start()
	resultsDone := make(chan struct{})
	go func() {
		defer close(resultsDone)
		for r := range a.worker.Results() {
			if r.Point != nil {
				a.agg.Ingest(*r.Point)
			}
			if r.Complete {
				return
			}
		}
	}()

	source := analyzer.NewFrameSource(a.cfg, analyzer.Unthrottled, func(f analyzer.Frame) {
		a.worker.AnalyzeSync(f)
	})

	if _, err := a.recorder.Start(func(data []byte, frameCount uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		sess.Feed(pcm)
		source.Push(data)
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	// Non-realtime replay delivers the whole file inside Start, so the take
	// can be closed immediately.
	a.recorder.Stop()
	source.Stop()
	a.worker.Finalize()
	<-resultsDone
	a.agg.Finalize()

	avgPitch := a.agg.AverageOverWindow(1e9)
	fmt.Printf("pitch: %d points, average %.1f Hz, dropped %d\n",
		a.agg.Len(), avgPitch, a.agg.Dropped())

	result, err := sess.Close()
	if err != nil {
		fmt.Printf("Transcription failed (%s): %v\n", fault.KindOf(err), err)
		return 1
	}
	if result.NoSpeech {
		fmt.Println("(no speech detected)")
		return 0
	}

	fmt.Printf("transcript: %s\n", result.Text)
	fb := scorer.Score(result.Text, a.category)
	fmt.Printf("overall %d | tone %d | clarity %d | handling %d\n",
		fb.Score, fb.Tone.Rating, fb.Clarity.Rating, fb.ObjectionHandling.Rating)
	for _, s := range fb.Strengths {
		fmt.Printf("  + %s\n", s)
	}
	for _, s := range fb.Improvements {
		fmt.Printf("  ~ %s\n", s)
	}
	for _, line := range result.Metrics {
		fmt.Printf("  %s\n", line)
	}
	return 0
}
