package batch

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"medscan/models"
)

// RetryResult counts the outcome of RetryFailed.
type RetryResult struct {
	Fixed       int
	StillFailed int
	Missing     int
}

// RetryFailed re-analyzes failed prescription scans whose image was kept
// (non-empty StorePath) and rewrites them in place. limit <= 0 means all.
func RetryFailed(ctx context.Context, db *gorm.DB, a Analyzer, limit int, log *zap.Logger) (RetryResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var res RetryResult
	q := db.WithContext(ctx).
		Where("kind = ? AND failed = ? AND store_path <> ''", models.KindPrescription, true).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var scans []models.Scan
	if err := q.Find(&scans).Error; err != nil {
		return res, fmt.Errorf("query failed scans: %w", err)
	}
	for i := range scans {
		s := &scans[i]
		if _, err := os.Stat(s.StorePath); err != nil {
			log.Warn("stored image missing", zap.String("ref", s.Ref), zap.String("path", s.StorePath))
			res.Missing++
			continue
		}
		rep, err := a.AnalyzePrescription(ctx, s.StorePath)
		if err != nil || rep == nil {
			log.Info("still failing", zap.String("ref", s.Ref), zap.Error(err))
			res.StillFailed++
			continue
		}
		fresh := models.NewPrescriptionScan(s.FileName, s.ContentType, rep)
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("scan_id = ?", s.ID).Delete(&models.ScanMedication{}).Error; err != nil {
				return err
			}
			if err := tx.Model(s).Updates(map[string]any{
				"ocr_pass":      fresh.OCRPass,
				"raw_text":      fresh.RawText,
				"report":        fresh.Report,
				"failed":        false,
				"failed_reason": "",
			}).Error; err != nil {
				return err
			}
			for j := range fresh.Medications {
				fresh.Medications[j].ScanID = s.ID
			}
			if len(fresh.Medications) == 0 {
				return nil
			}
			return tx.Create(&fresh.Medications).Error
		})
		if err != nil {
			return res, fmt.Errorf("update scan %s: %w", s.Ref, err)
		}
		log.Info("scan fixed", zap.String("ref", s.Ref), zap.Int("medications", len(fresh.Medications)))
		res.Fixed++
	}
	return res, nil
}
