package identity

import (
	"fmt"
	"math/rand"
)

var nameAdjectives = []string{
	"Amber", "Brave", "Calm", "Daring", "Eager", "Fuzzy", "Gentle", "Happy",
	"Icy", "Jolly", "Keen", "Lucky", "Mellow", "Nimble", "Odd", "Proud",
	"Quiet", "Rapid", "Sly", "Tidy", "Vivid", "Witty", "Zesty",
}

var nameAnimals = []string{
	"Badger", "Crane", "Dolphin", "Falcon", "Gecko", "Heron", "Ibis",
	"Jackal", "Koala", "Lynx", "Marten", "Narwhal", "Otter", "Panda",
	"Quokka", "Raven", "Swift", "Tapir", "Urchin", "Vole", "Wombat",
}

// GenerateDisplayName produces a random anonymous display name such as
// "QuietOtter42". Collisions are acceptable; display names are not unique.
func GenerateDisplayName() string {
	adjective := nameAdjectives[rand.Intn(len(nameAdjectives))]
	animal := nameAnimals[rand.Intn(len(nameAnimals))]
	return fmt.Sprintf("%s%s%d", adjective, animal, rand.Intn(100))
}
