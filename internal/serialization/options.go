package serialization

// Options control reading and writing
type Options struct {
	// StrictMode drops a subtree whose end tag does not match its start tag
	StrictMode bool
	// IgnoreUnknownElements skips unregistered tags silently instead of recording an error
	IgnoreUnknownElements bool
	// IgnoreUnknownProperties skips property entries whose ID and name are not registered
	IgnoreUnknownProperties bool
	// Culture selects XLanguage variants for scalar reads
	Culture string
	// Indent is repeated once per nesting level; empty writes compact output
	Indent string
	// XMLDeclaration prefixes serialized output with <?xml ...?>
	XMLDeclaration bool
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		IgnoreUnknownElements: true,
		Culture:               "en-US",
		Indent:                "  ",
		XMLDeclaration:        true,
	}
}

// Option changes one setting
type Option func(*Options)

// WithStrictMode toggles strict tag matching
func WithStrictMode(strict bool) Option {
	return func(o *Options) { o.StrictMode = strict }
}

// WithIgnoreUnknownElements toggles silent skipping of unknown tags
func WithIgnoreUnknownElements(ignore bool) Option {
	return func(o *Options) { o.IgnoreUnknownElements = ignore }
}

// WithIgnoreUnknownProperties toggles silent skipping of unknown property entries
func WithIgnoreUnknownProperties(ignore bool) Option {
	return func(o *Options) { o.IgnoreUnknownProperties = ignore }
}

// WithCulture sets the active culture code
func WithCulture(culture string) Option {
	return func(o *Options) { o.Culture = culture }
}

// WithIndent sets the indentation unit
func WithIndent(indent string) Option {
	return func(o *Options) { o.Indent = indent }
}

// WithXMLDeclaration toggles the <?xml ...?> prefix
func WithXMLDeclaration(enabled bool) Option {
	return func(o *Options) { o.XMLDeclaration = enabled }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
