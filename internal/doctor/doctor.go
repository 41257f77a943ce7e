// Package doctor runs readiness diagnostics for config, daemon, audio,
// recognizer, and the local model endpoints.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/tempest/internal/asr"
	"github.com/rbright/tempest/internal/audio"
	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/daemon"
	"github.com/rbright/tempest/internal/dictionary"
	"github.com/rbright/tempest/internal/model"
	"github.com/rbright/tempest/internal/secure"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkDictionary(cfg.Config))
	checks = append(checks, checkDaemonSocket(ctx, cfg.Config.Daemon.Socket))
	checks = append(checks, checkToken(os.Getenv(daemon.TokenEnv)))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkRecognizer(cfg.Config.ASR)...)

	if cfg.Config.Semantic.Enable {
		checks = append(checks, checkSemantic(ctx, cfg.Config.Semantic))
	}
	if cfg.Config.Relay.Enable {
		checks = append(checks, checkOllama(ctx, "relay.endpoint", cfg.Config.Relay.Endpoint))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

func checkDictionary(cfg config.Config) Check {
	dict, err := dictionary.Compile(cfg)
	if err != nil {
		return Check{Name: "dictionary", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "dictionary",
		Pass:    true,
		Message: fmt.Sprintf("%d actions, %d triggers (fingerprint %s)", len(dict.Phrases()), dict.Modes.Len(), dict.Fingerprint()),
	}
}

// checkDaemonSocket only connects; no frame is sent.
func checkDaemonSocket(ctx context.Context, path string) Check {
	path = strings.TrimSpace(path)
	if path == "" {
		return Check{Name: "daemon.socket", Pass: false, Message: "daemon.socket is empty"}
	}
	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Check{Name: "daemon.socket", Pass: false, Message: fmt.Sprintf("tempestd not reachable at %s: %v", path, err)}
	}
	_ = conn.Close()
	return Check{Name: "daemon.socket", Pass: true, Message: fmt.Sprintf("tempestd listening at %s", path)}
}

func checkToken(raw string) Check {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Check{Name: daemon.TokenEnv, Pass: false, Message: "not set; key chord actions will be disabled"}
	}
	if _, err := secure.ParseKey(raw); err != nil {
		return Check{Name: daemon.TokenEnv, Pass: false, Message: err.Error()}
	}
	return Check{Name: daemon.TokenEnv, Pass: true, Message: "token is well formed"}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkRecognizer(cfg config.ASRConfig) []Check {
	switch cfg.Backend {
	case "deepgram":
		if cfg.Deepgram.APIKey != "" || strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")) != "" {
			return []Check{{Name: "asr.deepgram", Pass: true, Message: "api key configured"}}
		}
		return []Check{{Name: "asr.deepgram", Pass: false, Message: "no api key in config or DEEPGRAM_API_KEY"}}
	default:
		checks := []Check{checkCommand(cfg.Command.Argv, "asr.command")}
		if asr.NeedsModel(cfg.Command.Argv) {
			checks = append(checks, checkModel(cfg.ModelPath))
		}
		return checks
	}
}

func checkModel(configured string) Check {
	path, err := model.Resolve(configured)
	if err != nil {
		return Check{Name: "asr.model", Pass: false, Message: err.Error()}
	}
	if !model.Exists(path) {
		return Check{Name: "asr.model", Pass: false, Message: fmt.Sprintf("%s missing; run `tempest model download`", path)}
	}
	return Check{Name: "asr.model", Pass: true, Message: fmt.Sprintf("found %s", path)}
}

func checkSemantic(ctx context.Context, cfg config.SemanticConfig) Check {
	if cfg.Provider == "genai" {
		if cfg.APIKey != "" || strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) != "" {
			return Check{Name: "semantic.genai", Pass: true, Message: "api key configured"}
		}
		return Check{Name: "semantic.genai", Pass: false, Message: "no api key in config or GEMINI_API_KEY"}
	}
	return checkOllama(ctx, "semantic.endpoint", cfg.Endpoint)
}

// checkOllama probes the model listing endpoint of an Ollama server.
func checkOllama(ctx context.Context, name string, endpoint string) Check {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		return Check{Name: name, Pass: false, Message: "endpoint is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	url := strings.TrimRight(base, "/") + "/api/tags"

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", base)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
