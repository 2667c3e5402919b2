package cmd

import (
	"bytes"
	"encoding/json"
	"flag"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestVersionAction_JSON(t *testing.T) {
	app := cli.NewApp()
	app.Writer = &bytes.Buffer{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("format", "json", "")
	fs.Bool("no-color", false, "")
	fs.Bool("tui", false, "")
	c := cli.NewContext(app, fs, nil)

	if err := versionAction("1.2.3", "abc123")(c); err != nil {
		t.Fatalf("versionAction failed: %v", err)
	}
}

func TestVersionResponse_JSONTags(t *testing.T) {
	resp := VersionResponse{Version: "1.2.3", Commit: "abc123"}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var round VersionResponse
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if round != resp {
		t.Errorf("round-trip mismatch: got %+v, want %+v", round, resp)
	}
}

func TestVersionAction_RejectsTUI(t *testing.T) {
	app := cli.NewApp()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("format", "", "")
	fs.Bool("no-color", false, "")
	fs.Bool("tui", true, "")
	if err := fs.Set("tui", "true"); err != nil {
		t.Fatal(err)
	}
	c := cli.NewContext(app, fs, nil)

	err := versionAction("1.2.3", "abc123")(c)
	if err == nil {
		t.Fatal("expected error when --tui is set")
	}
}
