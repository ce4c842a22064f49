package domain

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"
)

// TrackPlaceName reverse geocodes the first position of a track. A nil
// geocoder, an empty track or a failed lookup yield "" (graceful degradation).
func TrackPlaceName(ctx context.Context, track orb.LineString, geocoder Geocoder, logger *slog.Logger) string {
	if geocoder == nil || len(track) == 0 {
		return ""
	}

	start := track[0]
	result, err := geocoder.ReverseGeocode(ctx, start.Lat(), start.Lon())
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", start.Lat(),
			"lon", start.Lon(),
			"error", err,
		)
		return ""
	}
	if result.PlaceName != "" {
		return result.PlaceName
	}
	return result.FormattedAddress
}
