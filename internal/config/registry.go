package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
	"github.com/voxlate/voxlate/pkg/provider/translate"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// AudioDevices bundles the input and output halves of an audio backend so a
// single factory can own their shared runtime initialisation.
type AudioDevices struct {
	Source audio.Source
	Player audio.Player
}

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	stt       map[string]func(ProviderEntry) (stt.Recognizer, error)
	translate map[string]func(ProviderEntry) (translate.Service, error)
	tts       map[string]func(ProviderEntry, audio.Player) (tts.Synthesizer, error)
	audio     map[string]func(ProviderEntry) (AudioDevices, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:       make(map[string]func(ProviderEntry) (stt.Recognizer, error)),
		translate: make(map[string]func(ProviderEntry) (translate.Service, error)),
		tts:       make(map[string]func(ProviderEntry, audio.Player) (tts.Synthesizer, error)),
		audio:     make(map[string]func(ProviderEntry) (AudioDevices, error)),
	}
}

// RegisterSTT registers a speech recognizer factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTranslate registers a translation service factory under name.
func (r *Registry) RegisterTranslate(name string, factory func(ProviderEntry) (translate.Service, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// RegisterTTS registers a synthesizer factory under name. The factory
// receives the audio player the synthesizer should speak through.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry, audio.Player) (tts.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterAudio registers an audio device factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (AudioDevices, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// CreateSTT instantiates a recognizer using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranslate instantiates a translation service using the factory
// registered under entry.Name.
func (r *Registry) CreateTranslate(entry ProviderEntry) (translate.Service, error) {
	r.mu.RLock()
	factory, ok := r.translate[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a synthesizer using the factory registered under
// entry.Name, wiring it to player.
func (r *Registry) CreateTTS(entry ProviderEntry, player audio.Player) (tts.Synthesizer, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry, player)
}

// CreateAudio instantiates the audio devices using the factory registered
// under entry.Name.
func (r *Registry) CreateAudio(entry ProviderEntry) (AudioDevices, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return AudioDevices{}, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
