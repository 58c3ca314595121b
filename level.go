package logvault

// Level is a log severity. Lower weight means more severe.
type Level string

const (
	LevelError   Level = "error"
	LevelWarn    Level = "warn"
	LevelInfo    Level = "info"
	LevelHTTP    Level = "http"
	LevelVerbose Level = "verbose"
	LevelDebug   Level = "debug"
	LevelSilly   Level = "silly"
)

var levelWeights = map[Level]int{
	LevelError:   0,
	LevelWarn:    1,
	LevelInfo:    2,
	LevelHTTP:    3,
	LevelVerbose: 4,
	LevelDebug:   5,
	LevelSilly:   6,
}

// Levels returns all severities ordered from most to least severe.
func Levels() []Level {
	return []Level{
		LevelError,
		LevelWarn,
		LevelInfo,
		LevelHTTP,
		LevelVerbose,
		LevelDebug,
		LevelSilly,
	}
}

// Weight returns the numeric rank of the level; unknown levels rank
// below silly so they are never filtered out accidentally.
func (l Level) Weight() int {
	w, ok := levelWeights[l]
	if !ok {
		return len(levelWeights)
	}
	return w
}

// Valid reports whether l is one of the known severities.
func (l Level) Valid() bool {
	_, ok := levelWeights[l]
	return ok
}
