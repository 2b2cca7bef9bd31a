// Package variant resolves a build variant name into a concrete
// Dockerfile and image tag. Resolution is pure - no I/O, no side effects.
package variant

// =============================================================================
// Variant Types
// =============================================================================

// Variant is a named build configuration choice.
type Variant string

const (
	// VariantDefault is the full-fat image built from the plain Dockerfile.
	VariantDefault Variant = "default"
	// VariantAlpine is the Alpine-based image.
	VariantAlpine Variant = "alpine"
	// VariantSlim is the slim Debian-based image.
	VariantSlim Variant = "slim"
)

// Spec is the resolved (Dockerfile, tag) pair for a variant.
type Spec struct {
	Variant    Variant
	Dockerfile string // Dockerfile name relative to the dockerfile directory
	Tag        string // image tag suffix (after the image name)
}

// =============================================================================
// Resolution
// =============================================================================

// Resolve maps a variant argument to its build spec. The match is exact:
// only "alpine" and "slim" select their Dockerfile/tag; any other value,
// including the empty string or case/whitespace mutations of the known
// names, falls back to the default variant.
func Resolve(arg string) Spec {
	switch arg {
	case string(VariantAlpine):
		return Spec{
			Variant:    VariantAlpine,
			Dockerfile: "Dockerfile.alpine",
			Tag:        "alpine",
		}
	case string(VariantSlim):
		return Spec{
			Variant:    VariantSlim,
			Dockerfile: "Dockerfile.slim",
			Tag:        "slim",
		}
	default:
		return Spec{
			Variant:    VariantDefault,
			Dockerfile: "Dockerfile",
			Tag:        "latest",
		}
	}
}

// ImageRef returns the fully-qualified image reference for the spec,
// e.g. "reminder-bot:alpine".
func (s Spec) ImageRef(image string) string {
	return image + ":" + s.Tag
}
