package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// SamplingRecord is one field measurement taken during the visit.
type SamplingRecord struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OitDocumentId int             `gorm:"index;not null" json:"oit_document_id"`
	Parameter     string          `gorm:"size:150;not null" json:"parameter" binding:"required"`
	Value         decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"value"`
	Unit          string          `gorm:"size:50" json:"unit"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSamplingRecord struct {
	Parameter string `json:"parameter" binding:"required"`
	Value     string `json:"value" binding:"required"`
	Unit      string `json:"unit"`
}

// SaveSamplingRecords replaces a document's measurements and stamps
// sampling as completed, in one transaction. The Excel export artifact
// is rebuilt afterwards; its failure does not undo the save.
func SaveSamplingRecords(ctx context.Context, documentID int, inputs []NewSamplingRecord) ([]SamplingRecord, error) {
	if len(inputs) == 0 {
		return nil, errors.New("at least one sampling record is required")
	}

	document, err := GetOitDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	records := make([]SamplingRecord, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input.Parameter) == "" {
			return nil, errors.New("parameter is required")
		}
		value, err := utils.ParseDecimal(input.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %v", input.Parameter, err)
		}
		records = append(records, SamplingRecord{
			OitDocumentId: documentID,
			Parameter:     strings.TrimSpace(input.Parameter),
			Value:         value,
			Unit:          strings.TrimSpace(input.Unit),
		})
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("oit_document_id = ?", documentID).Delete(&SamplingRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&records).Error; err != nil {
			return err
		}
		return tx.Model(document).Update("SamplingCompletedAt", &now).Error
	})
	if err != nil {
		return nil, err
	}

	// auxiliary artifact: log and keep going on failure
	exportPath, exportErr := writeSamplingExport(ctx, document, records)
	if exportErr != nil {
		config.LogError(config.GetLogger(), "models", "SaveSamplingRecords", "writing sampling export", documentID, exportErr)
	} else if err := db.WithContext(ctx).Model(document).Update("SamplingExportPath", exportPath).Error; err != nil {
		config.LogError(config.GetLogger(), "models", "SaveSamplingRecords", "saving export path", documentID, err)
	}

	return records, nil
}

func ListSamplingRecords(ctx context.Context, documentID int) ([]SamplingRecord, error) {
	db := config.GetDB()
	var results []SamplingRecord
	err := db.WithContext(ctx).
		Where("oit_document_id = ?", documentID).
		Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func writeSamplingExport(ctx context.Context, document *OitDocument, records []SamplingRecord) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sampling"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Parameter", "Value", "Unit", "Recorded At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, record := range records {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheet, cell, record.Parameter)
		cell, _ = excelize.CoordinatesToCellName(2, row)
		f.SetCellValue(sheet, cell, record.Value.String())
		cell, _ = excelize.CoordinatesToCellName(3, row)
		f.SetCellValue(sheet, cell, record.Unit)
		cell, _ = excelize.CoordinatesToCellName(4, row)
		f.SetCellValue(sheet, cell, record.CreatedAt.Format(time.RFC3339))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("oit/%d/sampling.xlsx", document.ID)
	return utils.StoreObject(ctx, objectKey, buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// SaveAnalysisUpload stores the lab analysis file. This artifact is
// required for the final report, so storage failure propagates.
func SaveAnalysisUpload(ctx context.Context, documentID int, filename string, data []byte, contentType string) (*OitDocument, error) {
	document, err := GetOitDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("oit/%d/analysis/%s", documentID, filename)
	path, err := utils.StoreObject(ctx, objectKey, data, contentType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Model(document).Updates(map[string]interface{}{
		"AnalysisPath":       path,
		"AnalysisUploadedAt": &now,
	}).Error
	if err != nil {
		return nil, err
	}
	return document, nil
}
