package pipeline

import (
	"testing"
	"time"
)

func TestDefaultParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestParamsValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Params){
		func(p *Params) { p.BlockDuration = 0 },
		func(p *Params) { p.MinSilence = -time.Second },
		func(p *Params) { p.MinSpeech = p.MaxSpeech },
		func(p *Params) { p.Overlap = -time.Millisecond },
		func(p *Params) { p.MaxBuffer = p.MaxSpeech - time.Second },
		func(p *Params) { p.EnergyCeiling = p.EnergyFloor },
		func(p *Params) { p.PoolSize = 0 },
		func(p *Params) { p.SpeechDelay = -time.Second },
	}
	for i, mutate := range cases {
		p := DefaultParams()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d: invalid params passed validation: %+v", i, p)
		}
	}
}

func TestPresetParams(t *testing.T) {
	for _, name := range PresetNames() {
		p, ok := PresetParams(name)
		if !ok {
			t.Fatalf("preset %q missing", name)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("preset %q invalid: %v", name, err)
		}
	}

	if _, ok := PresetParams("Turbo"); ok {
		t.Fatal("unknown preset accepted")
	}

	balanced, _ := PresetParams("Balanced")
	lowest, _ := PresetParams("Lowest Latency")
	if lowest.MinSilence >= balanced.MinSilence {
		t.Fatalf("lowest latency silence %v not below balanced %v",
			lowest.MinSilence, balanced.MinSilence)
	}
	readable, _ := PresetParams("Maximum Readability")
	if readable.MinSpeech <= balanced.MinSpeech {
		t.Fatalf("readability min speech %v not above balanced %v",
			readable.MinSpeech, balanced.MinSpeech)
	}
}
