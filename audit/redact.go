package audit

// Mask replaces redacted values.
const Mask = "***"

// diffKeys are extension keys carrying before/after payloads.
var diffKeys = []string{"before", "after"}

// Redact returns a copy of e with client details, sensitive metadata and diff
// payloads replaced by [Mask]. The sensitive key is masked even when absent.
func Redact(e Entry) Entry {
	out := e.clone()
	out.IP = Mask
	out.UserAgent = Mask
	out.Metadata.Sensitive = Mask
	if out.Metadata.Diff != nil {
		out.Metadata.Diff = Mask
	}
	for _, key := range diffKeys {
		if _, ok := out.Metadata.Extra[key]; ok {
			out.Metadata.Extra[key] = Mask
		}
	}
	return out
}

// RedactAll applies [Redact] to every entry, returning a new slice.
func RedactAll(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Redact(e)
	}
	return out
}
