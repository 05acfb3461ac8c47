//go:build ztr_small

package fantasybridge

// The small build only talks to OpenAI-compatible endpoints.
func lookupBuilder(string) builder {
	return newOpenAICompat
}
