package doctor

import (
	"fmt"
	"math"
	"os"

	"pitchperfect/analyzer"
	"pitchperfect/audio"
	"pitchperfect/encoder"
	"pitchperfect/log"
)

// Run executes system diagnostics and returns an exit code (0=all pass,
// 1=any fail). When wavFile is non-empty the file is analyzed offline as a
// final check.
func Run(wavFile string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("pitchperfect doctor - system diagnostics")
	fmt.Println("========================================")

	checks := []func() bool{
		checkPitchDetection,
		checkVolumeDetection,
		checkFlacEncoder,
		checkAudioDevices,
		checkAPIKeys,
		checkLogDir,
	}

	allPass := true
	for _, check := range checks {
		if !check() {
			allPass = false
		}
	}

	if wavFile != "" {
		if !checkWavAnalysis(wavFile) {
			allPass = false
		}
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkPitchDetection() bool {
	fmt.Println()
	fmt.Println("[1/6] Pitch detection")

	cfg := analyzer.DefaultConfig()
	samples := make([]float64, cfg.BufferSize)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 150 * float64(i) / float64(cfg.SampleRate))
	}

	pitch, conf, err := analyzer.DetectPitch(samples, float64(cfg.SampleRate), cfg.PitchRange)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if math.Abs(pitch-150)/150 > 0.02 {
		fmt.Printf("  FAIL: 150Hz tone detected as %.1fHz\n", pitch)
		return false
	}
	if conf < cfg.MinConfidence {
		fmt.Printf("  FAIL: confidence %.3f below gate %.2f\n", conf, cfg.MinConfidence)
		return false
	}

	silence := make([]float64, cfg.BufferSize)
	if p, c, _ := analyzer.DetectPitch(silence, float64(cfg.SampleRate), cfg.PitchRange); p != 0 || c != 0 {
		fmt.Printf("  FAIL: silence reported pitch %.1fHz (conf %.3f)\n", p, c)
		return false
	}

	fmt.Printf("  PASS: 150Hz tone detected at %.1fHz (confidence %.3f)\n", pitch, conf)
	return true
}

func checkVolumeDetection() bool {
	fmt.Println()
	fmt.Println("[2/6] Volume detection")

	samples := make([]float64, 1024)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}
	v := analyzer.DetectVolume(samples)
	if math.Abs(v-1) > 1e-6 {
		fmt.Printf("  FAIL: full-scale RMS = %.4f, want 1.0\n", v)
		return false
	}
	fmt.Println("  PASS: RMS volume within expected range")
	return true
}

func checkFlacEncoder() bool {
	fmt.Println()
	fmt.Println("[3/6] FLAC encoder")

	enc, err := encoder.NewFlac()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	block := make([]int16, encoder.BlockSize)
	for i := range block {
		block[i] = int16(10000 * math.Sin(2*math.Pi*150*float64(i)/encoder.SampleRate))
	}
	if err := enc.EncodeBlock(block); err != nil {
		fmt.Printf("  FAIL: encode: %v\n", err)
		return false
	}
	if err := enc.Close(); err != nil {
		fmt.Printf("  FAIL: close: %v\n", err)
		return false
	}
	data := enc.Bytes()
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		fmt.Println("  FAIL: output is not FLAC")
		return false
	}
	fmt.Printf("  PASS: encoded %d samples to %d bytes\n", encoder.BlockSize, len(data))
	return true
}

func checkAudioDevices() bool {
	fmt.Println()
	fmt.Println("[4/6] Audio capture devices")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}
	for _, d := range devices {
		tag := ""
		if audio.IsBluetooth(d.Name) {
			tag = " [bluetooth: lower quality]"
		}
		fmt.Printf("  - %s%s\n", d.Name, tag)
	}
	fmt.Printf("  PASS: %d capture device(s) found\n", len(devices))
	return true
}

func checkAPIKeys() bool {
	fmt.Println()
	fmt.Println("[5/6] Transcription API keys")

	if os.Getenv("GROQ_API_KEY") != "" {
		fmt.Println("  PASS: GROQ_API_KEY set")
		return true
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		fmt.Println("  PASS: OPENAI_API_KEY set")
		return true
	}
	fmt.Println("  FAIL: set GROQ_API_KEY or OPENAI_API_KEY (transcription disabled)")
	return false
}

func checkLogDir() bool {
	fmt.Println()
	fmt.Println("[6/6] Log directory")

	dir, err := log.ResolveDir("")
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("  FAIL: cannot create %s: %v\n", dir, err)
		return false
	}
	fmt.Printf("  PASS: %s\n", dir)
	return true
}

// checkWavAnalysis runs a mono 16-bit WAV through the full analysis pipeline
// and reports what the analyzer heard.
func checkWavAnalysis(path string) bool {
	fmt.Println()
	fmt.Printf("[wav] Offline analysis of %s\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if len(data) <= audio.WAVHeaderSize {
		fmt.Println("  FAIL: file too short to be a WAV")
		return false
	}
	pcm := data[audio.WAVHeaderSize:]

	cfg := analyzer.DefaultConfig()
	worker := analyzer.NewWorker(cfg)
	defer worker.Close()

	agg := analyzer.NewAggregator()
	agg.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range worker.Results() {
			if r.Point != nil {
				agg.Ingest(*r.Point)
			}
			if r.Complete {
				return
			}
		}
	}()

	source := analyzer.NewFrameSource(cfg, analyzer.Unthrottled, func(f analyzer.Frame) {
		worker.AnalyzeSync(f)
	})
	source.Push(pcm)
	worker.Finalize()
	<-done
	agg.Finalize()

	if agg.Len() == 0 {
		fmt.Println("  WARN: no confident pitch points (silent or noisy audio?)")
		return true
	}
	avg := agg.AverageOverWindow(math.Inf(1))
	fmt.Printf("  PASS: %d points, average pitch %.1fHz\n", agg.Len(), avg)
	return true
}
