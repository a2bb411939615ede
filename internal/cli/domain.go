package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

var domainAdjectives = []string{
	"autumn", "bold", "brave", "calm", "cool", "crimson", "damp", "dark",
	"dawn", "divine", "dry", "empty", "falling", "fancy", "flat", "floral",
	"fragrant", "frosty", "gentle", "green", "hidden", "holy", "icy", "jolly",
	"late", "lingering", "little", "lively", "long", "lucky", "misty", "morning",
	"muddy", "nameless", "noisy", "odd", "old", "orange", "patient", "plain",
	"polished", "proud", "purple", "quiet", "rapid", "raspy", "red", "restless",
	"rough", "round", "royal", "shiny", "shy", "silent", "small", "snowy",
	"soft", "solitary", "sparkling", "spring", "square", "steep", "still", "summer",
	"super", "sweet", "throbbing", "tight", "tiny", "twilight", "wandering", "weathered",
	"white", "wild", "winter", "wispy", "withered", "yellow", "young",
}

var domainNouns = []string{
	"art", "band", "bar", "base", "bird", "block", "boat", "bonus",
	"bread", "breeze", "brook", "bush", "butterfly", "cake", "cell", "cherry",
	"cloud", "credit", "darkness", "dawn", "dew", "disk", "dream", "dust",
	"feather", "field", "fire", "firefly", "flower", "fog", "forest", "frog",
	"frost", "glade", "glitter", "grass", "hall", "hat", "haze", "heart",
	"hill", "king", "lab", "lake", "leaf", "limit", "math", "meadow",
	"mode", "moon", "morning", "mountain", "mouse", "mud", "night", "otter",
	"paper", "pine", "poetry", "pond", "queen", "rain", "recipe", "resonance",
	"rice", "river", "salad", "scene", "sea", "shadow", "shape", "silence",
	"sky", "smoke", "snow", "snowflake", "sound", "star", "sun", "sunset",
	"surf", "term", "thunder", "tooth", "tree", "truth", "union", "unit",
	"violet", "voice", "water", "waterfall", "wave", "wildflower", "wind", "wood",
}

// randomDomain returns a readable throwaway domain such as
// "brave-otter-3f9a.local".
func randomDomain() string {
	id := uuid.New()
	adjective := domainAdjectives[int(id[0])%len(domainAdjectives)]
	noun := domainNouns[int(id[1])%len(domainNouns)]
	return fmt.Sprintf("%s-%s-%s.local", adjective, noun, hex.EncodeToString(id[2:4]))
}
