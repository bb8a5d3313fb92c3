package instance

import "github.com/angelmondragon/gatic-backend/pkg/env"

// GetID identifies this process in logs and lock values. Heroku style dyno
// names are honoured when no explicit id is set.
func GetID() string {
	return env.First("local", "GATIC_INSTANCE_ID", "DYNO")
}
