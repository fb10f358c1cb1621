package utils

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cppla/livewall/config"
	"github.com/cppla/livewall/models"
	"github.com/cppla/livewall/objectstore"
)

var sweeper *cron.Cron

// StartObjectSweeper schedules an hourly sweep deleting stored objects past
// the configured TTL that no post references (abandoned uploads whose
// submission never happened). Best-effort: failures are logged, never fatal.
func StartObjectSweeper(objects *objectstore.Disk) {
	c := config.Get()
	if !c.ObjectsSweepEnabled {
		return
	}

	sweeper = cron.New()
	_, err := sweeper.AddFunc("@hourly", func() {
		SweepOrphanedObjects(objects, time.Duration(c.ObjectsSweepTTLMin)*time.Minute)
	})
	if err != nil {
		Sugar.Errorf("could not schedule object sweep: %v", err)
		return
	}
	sweeper.Start()
	Sugar.Info("object sweep scheduled hourly")
}

// StopObjectSweeper halts the scheduler.
func StopObjectSweeper() {
	if sweeper != nil {
		sweeper.Stop()
	}
}

// SweepOrphanedObjects removes object rows (and their files) older than ttl
// whose URL appears in no post.
func SweepOrphanedObjects(objects *objectstore.Disk, ttl time.Duration) {
	db := config.DB()
	cutoff := time.Now().Add(-ttl)

	var orphans []models.StoredObject
	err := db.Where("updated_at <= ?", cutoff).
		Where("url NOT IN (?)", db.Model(&models.Post{}).Select("image_url").Where("image_url <> ''")).
		Limit(100).
		Find(&orphans).Error
	if err != nil {
		Sugar.Errorf("object sweep query failed: %v", err)
		return
	}

	for _, obj := range orphans {
		if err := objects.Remove(obj.Path); err != nil {
			Sugar.Warnf("object sweep could not remove %s: %v", obj.Path, err)
		}
		// Drop the row regardless of file deletion outcome.
		if err := db.Delete(&models.StoredObject{}, obj.ID).Error; err != nil {
			Sugar.Errorf("object sweep delete row failed: %v", err)
		}
	}
	if len(orphans) > 0 {
		Sugar.Infof("object sweep removed %d orphaned objects", len(orphans))
	}
}
