// Package redisstore implements the job store, dedup marker, event publisher,
// import queue and generation store on Redis.
package redisstore

const (
	jobKeyPrefix        = "job:"
	importedKeyPrefix   = "imported:"
	generationKeyPrefix = "generation:"
	generationIndexKey  = "generations"

	// ImportQueueKey is the list the media import worker pops from.
	ImportQueueKey = "media_import"
)

func jobKey(id string) string        { return jobKeyPrefix + id }
func importedKey(id string) string   { return importedKeyPrefix + id }
func generationKey(id string) string { return generationKeyPrefix + id }
