package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/config"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/llm"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/note"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/notestore"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/paths"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/pipeline"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/recorder"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/secrets"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/stt"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/vault"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	cmd := "help"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	if cmd == "version" {
		fmt.Printf("voicenote %s\n", version)
		return
	}

	cfg, cfgPath, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicenote: %v\n", err)
		os.Exit(1)
	}

	Init(&Config{Level: cfg.LogLevel()})

	app := &app{cfg: cfg, cfgPath: cfgPath}

	switch cmd {
	case "record":
		err = app.record()
	case "list":
		err = app.list(len(args) > 0 && args[0] == "--all")
	case "delete":
		err = app.delete(args)
	case "download-model":
		err = app.downloadModel(args)
	case "set-key":
		err = app.setKey(args)
	case "set-vault":
		err = app.setVault(args)
	case "use":
		err = app.useProvider(args)
	case "words":
		err = app.setWords(args)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "voicenote: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "voicenote: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`voicenote - capture voice memos into your Obsidian vault

Usage:
  voicenote record                  record a memo, Enter stops
  voicenote list [--all]            list notes (newest first)
  voicenote delete <id>             delete a note and its audio
  voicenote download-model <name>   fetch a whisper.cpp model
  voicenote set-key <provider> [k]  store an LLM API key (omit k to clear)
  voicenote set-vault <dir>         set the Obsidian vault directory
  voicenote use <provider> [model]  select the cleanup provider
  voicenote words <w1> <w2> ...     set custom vocabulary for cleanup
  voicenote version
`)
}

type app struct {
	cfg     *config.Config
	cfgPath string
}

func (a *app) secrets() (*secrets.FileStore, error) {
	return secrets.Open("")
}

func (a *app) openStore() (*notestore.Store, error) {
	notesPath, err := paths.NotesPath()
	if err != nil {
		return nil, err
	}
	audioDir, err := paths.AudioDir()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDir(audioDir); err != nil {
		return nil, err
	}
	if err := paths.EnsureParentDir(notesPath); err != nil {
		return nil, err
	}
	return notestore.Open(notesPath, audioDir)
}

// coordinator wires the pipeline with lazy factories over the current
// configuration.
func (a *app) coordinator() (*pipeline.Coordinator, error) {
	audioDir, err := paths.AudioDir()
	if err != nil {
		return nil, err
	}

	creds, err := a.secrets()
	if err != nil {
		return nil, err
	}

	factories := pipeline.Factories{
		Recorder: func() (recorder.Recorder, error) {
			return recorder.NewFFmpeg(audioDir, a.cfg.Recorder.Device)
		},
		Transcriber: func() (stt.Provider, error) {
			return stt.New(a.cfg.STT)
		},
		Cleaner: func() (pipeline.Cleaner, error) {
			if a.cfg.LLM.Provider == "" {
				return nil, nil
			}
			return llm.NewService(a.cfg.LLM, creds), nil
		},
		Vault: func() (pipeline.VaultWriter, error) {
			dir, ok := creds.Get(secrets.KeyVaultDir)
			if !ok {
				return nil, nil
			}
			expanded, err := paths.ExpandTilde(dir)
			if err != nil {
				return nil, err
			}
			return vault.New(expanded)
		},
		Store: func() (*notestore.Store, error) {
			return a.openStore()
		},
	}

	return pipeline.New(audioDir, factories), nil
}

func (a *app) record() error {
	coord, err := a.coordinator()
	if err != nil {
		return err
	}
	defer coord.Close()

	ctx := context.Background()

	if err := coord.StartRecording(ctx); err != nil {
		return err
	}

	fmt.Println("Recording... press Enter to stop.")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

	fmt.Println("Processing...")
	n, err := coord.StopRecording(ctx)
	if err != nil {
		return err
	}

	if notice := coord.State().LastNotice; notice != "" {
		fmt.Println(notice)
	}

	fmt.Printf("Saved: %s (%.1fs)\n", n.Title, n.Duration)
	if n.VaultPath != nil {
		fmt.Printf("Exported to vault: %s\n", *n.VaultPath)
	}
	return nil
}

func (a *app) list(all bool) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	if err := store.LoadMore(); err != nil {
		return err
	}
	for all && !store.LoadedAll() {
		if err := store.LoadMore(); err != nil {
			return err
		}
	}

	notes := store.Notes()
	if len(notes) == 0 {
		fmt.Println("No notes yet. Run 'voicenote record' to create one.")
		return nil
	}

	for _, n := range notes {
		printNote(n)
	}
	if !store.LoadedAll() {
		fmt.Printf("... %d shown, use --all for the rest\n", len(notes))
	}
	return nil
}

func printNote(n *note.Note) {
	exported := ""
	if n.VaultPath != nil {
		exported = " -> " + *n.VaultPath
	}
	fmt.Printf("%s  %s  %-30s %.1fs%s\n",
		n.ID[:8],
		n.CreatedAt.Format("2006-01-02 15:04"),
		n.Title,
		n.Duration,
		exported)
}

func (a *app) delete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: voicenote delete <id>")
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}

	// Accept a full ID or the 8-char prefix shown by list.
	id := args[0]
	if len(id) < 36 {
		if err := store.LoadMore(); err != nil {
			return err
		}
		for !store.LoadedAll() {
			if err := store.LoadMore(); err != nil {
				return err
			}
		}
		for _, n := range store.Notes() {
			if strings.HasPrefix(n.ID, id) {
				id = n.ID
				break
			}
		}
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func (a *app) downloadModel(args []string) error {
	if len(args) != 1 {
		fmt.Println("Available models:")
		for _, m := range stt.WhisperModels {
			fmt.Printf("  %-20s %-22s %s\n", m.Name, m.Label, m.Size)
		}
		return fmt.Errorf("usage: voicenote download-model <name>")
	}

	model := stt.GetModel(args[0])
	if model == nil {
		return fmt.Errorf("unknown model %q, run without arguments to list", args[0])
	}

	modelsDir, err := paths.WhisperModelsDir()
	if err != nil {
		return err
	}
	if err := paths.EnsureDir(modelsDir); err != nil {
		return err
	}

	if err := stt.DownloadModel(model, modelsDir); err != nil {
		return err
	}

	// Point the local transcriber at the new model.
	a.cfg.STT.Provider = "whispercpp"
	a.cfg.STT.WhisperCpp.Model = model.Name
	if err := a.cfg.Save(a.cfgPath); err != nil {
		return err
	}

	fmt.Printf("Model %s ready.\n", model.Label)
	return nil
}

func (a *app) setKey(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: voicenote set-key <provider> [key]")
	}
	provider := args[0]
	apiKey := ""
	if len(args) > 1 {
		apiKey = args[1]
	}

	creds, err := a.secrets()
	if err != nil {
		return err
	}

	svc := llm.NewService(a.cfg.LLM, creds)
	if err := svc.SetCredential(provider, apiKey); err != nil {
		return err
	}

	if apiKey == "" {
		fmt.Printf("Cleared %s API key.\n", provider)
	} else {
		fmt.Printf("Stored %s API key.\n", provider)
	}
	return nil
}

func (a *app) setVault(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: voicenote set-vault <dir>")
	}

	expanded, err := paths.ExpandTilde(args[0])
	if err != nil {
		return err
	}
	if _, err := vault.New(expanded); err != nil {
		return err
	}

	creds, err := a.secrets()
	if err != nil {
		return err
	}
	if err := creds.Set(secrets.KeyVaultDir, args[0]); err != nil {
		return err
	}

	fmt.Printf("Vault set to %s\n", expanded)
	return nil
}

func (a *app) useProvider(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: voicenote use <provider> [model] (providers: %s)",
			strings.Join(llm.ProviderNames(), ", "))
	}

	creds, err := a.secrets()
	if err != nil {
		return err
	}

	svc := llm.NewService(a.cfg.LLM, creds)
	if err := svc.SelectProvider(args[0]); err != nil {
		return err
	}
	if len(args) > 1 {
		if err := svc.SelectModel(args[1]); err != nil {
			return err
		}
	}

	a.cfg.LLM = svc.Config()
	if err := a.cfg.Save(a.cfgPath); err != nil {
		return err
	}

	fmt.Printf("Cleanup provider: %s (%s)\n", a.cfg.LLM.Provider, a.cfg.LLM.Model)
	return nil
}

func (a *app) setWords(args []string) error {
	a.cfg.LLM.CustomWords = args
	if err := a.cfg.Save(a.cfgPath); err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Println("Custom vocabulary cleared.")
	} else {
		fmt.Printf("Custom vocabulary: %s\n", strings.Join(args, ", "))
	}
	return nil
}
