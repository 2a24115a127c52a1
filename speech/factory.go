package speech

import (
	"fmt"

	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/speech/deepgram"
)

// Supported providers.
const (
	ProviderBrowser  = "browser"
	ProviderDeepgram = "deepgram"
	ProviderNone     = "none"
)

// Factory builds the capability of one workspace. It returns nil when
// speech capture is disabled.
type Factory func() interfaces.SpeechCapture

// NewFactory returns the factory for provider.
func NewFactory(provider string, dg deepgram.Options) (Factory, error) {
	switch provider {
	case ProviderBrowser:
		return func() interfaces.SpeechCapture { return NewRemote(DefaultBuffer) }, nil
	case ProviderDeepgram:
		if dg.APIKey == "" {
			return nil, fmt.Errorf("deepgram provider requires an API key")
		}
		return func() interfaces.SpeechCapture { return deepgram.New(dg) }, nil
	case ProviderNone:
		return func() interfaces.SpeechCapture { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", provider)
	}
}
