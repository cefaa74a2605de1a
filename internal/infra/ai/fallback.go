package ai

import (
	"ordersync/internal/domain/entity"
	"ordersync/internal/domain/service"
)

// Fallback deterministically derives recommendations from the session's
// own preference cache. There is no randomness: the same preferences
// always produce the same suggestions, so a session sees stable output
// while the model is down or disabled.
func Fallback(prefs entity.UserPreferences) []service.Recommendation {
	recs := make([]service.Recommendation, 0, 5)

	// Frequent items from preferred restaurants rank first
	for i, item := range prefs.FrequentItems {
		if len(recs) == cap(recs) {
			break
		}
		restaurant := ""
		if i < len(prefs.PreferredRestaurants) {
			restaurant = prefs.PreferredRestaurants[i]
		} else if len(prefs.PreferredRestaurants) > 0 {
			restaurant = prefs.PreferredRestaurants[0]
		}
		recs = append(recs, service.Recommendation{
			Title:      item,
			Restaurant: restaurant,
			Reason:     "You order this often",
			Confidence: 0.9,
		})
	}

	for _, cuisine := range prefs.FavoriteCuisines {
		if len(recs) == cap(recs) {
			break
		}
		recs = append(recs, service.Recommendation{
			Title:      "Popular " + cuisine + " dishes",
			Reason:     "Based on your favorite cuisines",
			Confidence: 0.6,
		})
	}

	if len(recs) == 0 {
		// Brand-new session with an empty behavior log
		recs = append(recs, service.Recommendation{
			Title:      "Today's most ordered dishes",
			Reason:     "Popular right now",
			Confidence: 0.3,
		})
	}

	return recs
}
