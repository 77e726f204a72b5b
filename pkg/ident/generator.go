// Package ident generates collision-resistant, human and LLM legible entity
// keys. Keys are built from curated vocabularies ordered the way English
// orders adjectives (quantity before quality before size, and so on) with a
// noun last, so a three word key reads like a tiny noun phrase. Joined with
// an underscore the result survives token-level stemming and n-gramming,
// which keeps language-model recall of an entity stable.
package ident

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// ErrGenerationExhausted is returned when the bounded redraw loop cannot
// find an identifier that is unique within the caller's uniqueness set.
// Callers may retry with a larger word count.
var ErrGenerationExhausted = errors.New("identifier generation exhausted")

// DefaultAttempts bounds the redraw loop on collision.
const DefaultAttempts = 24

// Vocabulary categories in reversed canonical adjective order: the word
// closest to the noun comes first, so a two word ident is "purpose noun",
// a three word ident is "material purpose noun", and so on.
var (
	quantity = []string{"one", "two", "several", "many", "few", "hundred", "dozen", "all", "some", "no"}
	quality  = []string{"lovely", "horrible", "delightful", "awful", "magnificent", "mediocre", "splendid", "terrible", "charming", "dreadful"}
	size     = []string{"tiny", "small", "medium", "large", "huge", "gigantic", "minuscule", "massive", "petite", "enormous"}
	age      = []string{"young", "old", "ancient", "modern", "new", "antique", "recent", "medieval", "vintage", "prehistoric"}
	shape    = []string{"round", "square", "rectangular", "triangular", "flat", "bulky", "slender", "curved", "pointed", "oval"}
	color    = []string{"red", "green", "blue", "yellow", "black", "white", "purple", "orange", "pink", "gray"}
	origin   = []string{
		"french", "american", "chinese", "egyptian", "greek", "roman", "japanese", "german", "russian", "brazilian",
		"italian", "spanish", "british", "scottish", "irish", "welsh", "swiss", "swedish", "norwegian", "danish",
		"finnish", "icelandic", "polish", "czech", "slovak", "hungarian", "austrian", "belgian", "dutch", "portuguese",
		"turkish", "persian", "arabic", "hebrew", "syrian", "lebanese", "iraqi", "iranian", "pakistani", "indian",
		"mongolian", "korean", "thai", "vietnamese", "filipino", "malaysian", "indonesian", "australian", "canadian", "mexican",
		"argentinian", "chilean", "colombian", "peruvian", "venezuelan", "cuban", "jamaican", "haitian", "dominican", "nigerian",
		"ethiopian", "kenyan", "tanzanian", "ugandan", "ghanaian", "senegalese", "algerian", "moroccan", "tunisian", "sudanese",
	}
	material = []string{"tin", "wax", "fur", "ice", "gem", "oil", "tar", "net", "ash", "mud", "silk", "wool", "oak", "elm", "ivy", "gum", "hay", "jet", "sap", "urn", "vat", "web", "yam", "clay", "sand"}
	purpose  = []string{
		"baking", "camping", "climbing", "cooking", "cutting", "diving", "drying", "eating", "fishing", "gardening",
		"hiking", "hunting", "jogging", "knitting", "measuring", "mixing", "painting", "pouring", "racing", "reading",
		"riding", "rowing", "running", "sailing", "serving", "sewing", "sleeping", "stirring", "studying", "swimming",
		"teaching", "timing", "training", "traveling", "typing", "voting", "walking", "washing", "watering", "wiring",
	}
	nouns = []string{
		"ox", "ant", "bee", "pig", "hen", "owl", "fox", "cow", "yak", "ram",
		"kid", "cop", "nun", "son", "pal", "guy", "lad", "doc", "spy", "vet",
		"cub", "cab", "bin", "bug", "bear", "bull", "deer", "duck", "goat", "king",
		"lady", "lion", "lord", "maid", "monk", "pope", "stag", "wolf", "hero", "guru",
		"jury", "pawn", "sage", "seer", "twin", "yogi",
	}

	// Closest-to-noun first.
	adjectiveOrder = [][]string{purpose, material, origin, color, shape, age, size, quality, quantity}
)

// Generator draws identifiers from the vocabularies above. It is not safe
// for concurrent use; each graph owns one.
type Generator struct {
	rng      *rand.Rand
	attempts int
}

/*
New creates a Generator seeded from UUID entropy. Generation order and
contents are intentionally non-deterministic.
*/
func New() *Generator {
	return &Generator{
		rng:      rand.New(rand.NewSource(seed())),
		attempts: DefaultAttempts,
	}
}

// NewWithAttempts creates a Generator with a custom redraw bound.
func NewWithAttempts(attempts int) *Generator {
	gen := New()
	if attempts > 0 {
		gen.attempts = attempts
	}

	return gen
}

// seed folds a random UUID into an int64 the same way the original folded a
// nanoid into an integer seed.
func seed() int64 {
	var value int64
	for _, b := range uuid.New() {
		value = value<<8 | int64(b)
	}

	return value
}

/*
Generate composes wordCount words joined by delimiter. When taken reports a
collision the generator redraws, up to its bounded attempt count, and fails
with ErrGenerationExhausted once the bound is hit. The returned string never
violates the caller's uniqueness set. wordCount must be between 1 and 10:
one noun plus up to nine adjective categories.
*/
func (g *Generator) Generate(wordCount int, delimiter string, taken func(string) bool) (string, error) {
	if wordCount < 1 || wordCount > len(adjectiveOrder)+1 {
		return "", fmt.Errorf("word count must be between 1 and %d, got %d", len(adjectiveOrder)+1, wordCount)
	}

	for attempt := 0; attempt < g.attempts; attempt++ {
		candidate := g.compose(wordCount, delimiter)
		if taken == nil || !taken(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no unique identifier after %d attempts with %d words", ErrGenerationExhausted, g.attempts, wordCount)
}

// compose builds one candidate: adjectives in canonical order, noun last.
func (g *Generator) compose(wordCount int, delimiter string) string {
	parts := make([]string, wordCount)
	parts[wordCount-1] = nouns[g.rng.Intn(len(nouns))]

	// Fill right to left so the adjective nearest the noun comes from the
	// category nearest the noun.
	for i := 0; i < wordCount-1; i++ {
		category := adjectiveOrder[i]
		parts[wordCount-2-i] = category[g.rng.Intn(len(category))]
	}

	out := parts[0]
	for _, part := range parts[1:] {
		out += delimiter + part
	}

	return out
}
