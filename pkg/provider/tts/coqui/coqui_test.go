package coqui

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	audiomock "github.com/voxlate/voxlate/pkg/audio/mock"
)

// buildWAV constructs a minimal mono 16-bit RIFF/WAVE file with the given
// samples and sample rate.
func buildWAV(samples []int16, sampleRate int) []byte {
	dataLen := len(samples) * 2
	buf := make([]byte, 0, 44+dataLen)

	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b
	}
	u16 := func(v uint16) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		return b
	}

	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, u32(uint32(36+dataLen))...)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...) // PCM
	buf = append(buf, u16(1)...) // mono
	buf = append(buf, u32(uint32(sampleRate))...)
	buf = append(buf, u32(uint32(sampleRate*2))...)
	buf = append(buf, u16(2)...)
	buf = append(buf, u16(16)...)
	buf = append(buf, []byte("data")...)
	buf = append(buf, u32(uint32(dataLen))...)
	for _, s := range samples {
		buf = append(buf, u16(uint16(s))...)
	}
	return buf
}

// TestSpeak_PlaysDecodedAudio verifies the WAV response is decoded and handed
// to the player at the file's sample rate.
func TestSpeak_PlaysDecodedAudio(t *testing.T) {
	wav := buildWAV([]int16{0, 16384, -16384, 32767}, 22050)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/details":
			fmt.Fprint(w, `{"model_name":"tts_models/es/css10/vits","language":"es"}`)
		case "/api/tts":
			if got := r.URL.Query().Get("text"); got != "hola" {
				t.Errorf("text = %q, want hola", got)
			}
			w.Write(wav)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	player := &audiomock.Player{}
	s, err := New(srv.URL, player)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Speak(context.Background(), "hola", "es"); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	calls := player.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 play call, got %d", len(calls))
	}
	if calls[0].SampleRate != 22050 {
		t.Errorf("sample rate = %d, want 22050", calls[0].SampleRate)
	}
	if len(calls[0].Samples) != 4 {
		t.Errorf("samples = %d, want 4", len(calls[0].Samples))
	}
}

// TestSpeak_RateScalesPlayback verifies WithRate changes the playback rate.
func TestSpeak_RateScalesPlayback(t *testing.T) {
	wav := buildWAV([]int16{0, 100}, 22050)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/details" {
			http.NotFound(w, r)
			return
		}
		w.Write(wav)
	}))
	defer srv.Close()

	player := &audiomock.Player{}
	s, err := New(srv.URL, player, WithRate(1.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Speak(context.Background(), "hi", "en"); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	calls := player.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 play call, got %d", len(calls))
	}
	want := int(22050 * 1.5)
	if calls[0].SampleRate != want {
		t.Errorf("sample rate = %d, want %d", calls[0].SampleRate, want)
	}
}

// TestSpeak_SelectsSpeakerByLanguage verifies the catalogue is consulted and
// a matching speaker_id is sent.
func TestSpeak_SelectsSpeakerByLanguage(t *testing.T) {
	wav := buildWAV([]int16{0}, 16000)
	var gotSpeaker string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/details":
			fmt.Fprint(w, `{"model_name":"multi","language":"es","speakers":["maria","pedro"]}`)
		case "/api/tts":
			gotSpeaker = r.URL.Query().Get("speaker_id")
			w.Write(wav)
		}
	}))
	defer srv.Close()

	s, err := New(srv.URL, &audiomock.Player{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Speak(context.Background(), "hola", "es"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if gotSpeaker != "maria" {
		t.Errorf("speaker_id = %q, want maria", gotSpeaker)
	}
}

// TestSpeak_ServerErrorIsFault verifies an HTTP error aborts synthesis
// without touching the player.
func TestSpeak_ServerErrorIsFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/details" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	player := &audiomock.Player{}
	s, err := New(srv.URL, player)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Speak(context.Background(), "hola", "es"); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if len(player.Calls()) != 0 {
		t.Errorf("player should not have been called")
	}
}

// TestVoices_MultiSpeaker returns one voice per speaker, sorted.
func TestVoices_MultiSpeaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model_name":"multi","language":"en","speakers":["zoe","amy"]}`)
	}))
	defer srv.Close()

	s, err := New(srv.URL, &audiomock.Player{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	voices, err := s.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].ID != "amy" || voices[1].ID != "zoe" {
		t.Errorf("voices not sorted: %v", voices)
	}
	if voices[0].Language != "en" {
		t.Errorf("language = %q, want en", voices[0].Language)
	}
}

// TestVoices_SingleSpeakerUsesModelName falls back to the model name and
// extracts the language from the model path.
func TestVoices_SingleSpeakerUsesModelName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model_name":"tts_models/de/thorsten/vits"}`)
	}))
	defer srv.Close()

	s, err := New(srv.URL, &audiomock.Player{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	voices, err := s.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 1 {
		t.Fatalf("expected 1 voice, got %d", len(voices))
	}
	if voices[0].Language != "de" {
		t.Errorf("language = %q, want de", voices[0].Language)
	}
}

// TestParseWAV_MissingHeader rejects non-RIFF payloads.
func TestParseWAV_MissingHeader(t *testing.T) {
	if _, err := parseWAV([]byte("not a wav file at all")); err == nil {
		t.Fatal("expected error for invalid WAV")
	}
}

// TestNew_Validation rejects missing serverURL and player.
func TestNew_Validation(t *testing.T) {
	if _, err := New("", &audiomock.Player{}); err == nil {
		t.Fatal("expected error for empty serverURL")
	}
	if _, err := New("http://localhost:5002", nil); err == nil {
		t.Fatal("expected error for nil player")
	}
}
