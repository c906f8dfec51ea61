package whispercpp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseTranscript_WhisperCPPFormat(t *testing.T) {
	in := `{"transcription":[
		{"offsets":{"from":0,"to":2500},"text":" Open the app. "},
		{"offsets":{"from":2500,"to":2500},"text":" "},
		{"offsets":{"from":2500,"to":6000},"text":"Then tap start"}
	]}`
	tr, err := parseTranscript([]byte(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(tr.Segments), tr.Segments)
	}
	if tr.Segments[0].Text != "Open the app." || tr.Segments[0].End != 2.5 {
		t.Fatalf("unexpected first segment: %+v", tr.Segments[0])
	}
	if tr.Segments[1].Start != 2.5 || tr.Segments[1].End != 6 {
		t.Fatalf("unexpected second segment: %+v", tr.Segments[1])
	}
}

func TestParseTranscript_SegmentsFormat(t *testing.T) {
	in := `{"segments":[{"start":1,"end":3,"text":" hi ","words":[{"start":1,"end":2,"word":" hi"}]}]}`
	tr, err := parseTranscript([]byte(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Segments) != 1 || tr.Segments[0].Text != "hi" || tr.Segments[0].Words[0].Word != "hi" {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
}

func TestParseTranscript_Invalid(t *testing.T) {
	if _, err := parseTranscript([]byte("not json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTranscribe_MissingModelIsCheckedOnce(t *testing.T) {
	a := New("whisper-cli", filepath.Join(t.TempDir(), "missing.bin"), nil)
	_, err1 := a.Transcribe(context.Background(), "in.wav", t.TempDir())
	_, err2 := a.Transcribe(context.Background(), "in.wav", t.TempDir())
	if err1 == nil || err2 == nil {
		t.Fatalf("expected model errors, got %v and %v", err1, err2)
	}
	if err1 != err2 {
		t.Fatalf("expected the cached model error to be reused")
	}
}

func TestTranscribe_EmptyModelFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New("whisper-cli", p, nil).Transcribe(context.Background(), "in.wav", t.TempDir()); err == nil {
		t.Fatalf("expected error for empty model file")
	}
}
