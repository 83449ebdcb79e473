package synth

// VoiceNone disables speech output while keeping the rest of the pipeline
// running.
const VoiceNone = "none"

// Voices lists the Kokoro voices offered to clients. The two-letter prefix
// encodes language and gender (af = American female, bm = British male, ...).
var Voices = []string{
	"af_heart",
	"af_alloy",
	"af_aoede",
	"af_bella",
	"af_jessica",
	"af_kore",
	"af_nicole",
	"af_nova",
	"af_river",
	"af_sarah",
	"af_sky",
	"am_adam",
	"am_echo",
	"am_eric",
	"am_fenrir",
	"am_liam",
	"am_michael",
	"am_onyx",
	"am_puck",
	"am_santa",
	"bf_alice",
	"bf_emma",
	"bf_isabella",
	"bf_lily",
	"bm_daniel",
	"bm_fable",
	"bm_george",
	"bm_lewis",
	"jf_alpha",
	"jf_gongitsune",
	"jf_nezumi",
	"jf_tebukuro",
	"jm_kumo",
	"zf_xiaobei",
	"zf_xiaoni",
	"zf_xiaoxiao",
	"zf_xiaoyi",
	"zm_yunjian",
	"zm_yunxi",
	"zm_yunxia",
	"zm_yunyang",
	"ef_dora",
	"em_alex",
	"em_santa",
	"ff_siwis",
	"hf_alpha",
	"hf_beta",
	"hm_omega",
	"hm_psi",
	"if_sara",
	"im_nicola",
	"pf_dora",
	"pm_alex",
	"pm_santa",
}

var voiceSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Voices))
	for _, v := range Voices {
		m[v] = struct{}{}
	}
	return m
}()

// IsKnownVoice reports whether the voice can be synthesized. VoiceNone is not
// a synthesizable voice.
func IsKnownVoice(voice string) bool {
	_, ok := voiceSet[voice]
	return ok
}
