package models

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/utils"
	"github.com/xuri/excelize/v2"
)

// ImportResult summarizes one CSV import run.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ParseResourceCSV reads "name,type,quantity,available,status,location,description"
// rows. A header row is detected and skipped. Quantity defaults to 1,
// available to true, status to available.
func ParseResourceCSV(data []byte) ([]NewResource, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var inputs []NewResource
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line+1, err)
		}
		line++

		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: name and type are required", line)
		}
		name := strings.TrimSpace(record[0])
		rtype := strings.ToLower(strings.TrimSpace(record[1]))

		// header row
		if line == 1 && strings.EqualFold(name, "name") {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("line %d: name is required", line)
		}
		if !ResourceType(rtype).IsValid() {
			return nil, fmt.Errorf("line %d: invalid resource type %q", line, rtype)
		}

		input := NewResource{
			Name:      name,
			Type:      ResourceType(rtype),
			Quantity:  1,
			Available: utils.NewTrue(),
			Status:    ResourceStatusAvailable,
		}

		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			qty, err := strconv.Atoi(strings.TrimSpace(record[2]))
			if err != nil || qty < 0 {
				return nil, fmt.Errorf("line %d: invalid quantity %q", line, record[2])
			}
			input.Quantity = qty
		}
		if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
			available, err := strconv.ParseBool(strings.TrimSpace(record[3]))
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid available flag %q", line, record[3])
			}
			input.Available = &available
		}
		if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
			status := ResourceStatus(strings.ToLower(strings.TrimSpace(record[4])))
			if !status.IsValid() {
				return nil, fmt.Errorf("line %d: invalid status %q", line, record[4])
			}
			input.Status = status
		}
		if len(record) > 5 {
			input.Location = strings.TrimSpace(record[5])
		}
		if len(record) > 6 {
			input.Description = strings.TrimSpace(record[6])
		}

		inputs = append(inputs, input)
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no resource rows found")
	}
	return inputs, nil
}

// ImportResources creates or updates (matched by name) each parsed row.
func ImportResources(ctx context.Context, inputs []NewResource) (*ImportResult, error) {
	db := config.GetDB()
	result := ImportResult{}

	for _, input := range inputs {
		input := input
		var existing Resource
		err := db.WithContext(ctx).Where("name = ?", input.Name).First(&existing).Error
		if err == nil {
			if _, err := UpdateResource(ctx, existing.ID, &input); err != nil {
				return nil, fmt.Errorf("updating %q: %v", input.Name, err)
			}
			result.Updated++
			continue
		}
		if _, err := CreateResource(ctx, &input); err != nil {
			return nil, fmt.Errorf("creating %q: %v", input.Name, err)
		}
		result.Created++
	}

	return &result, nil
}

// ExportResourcesExcel renders the full inventory as an xlsx workbook.
func ExportResourcesExcel(ctx context.Context) ([]byte, error) {
	resources, err := ListResources(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Resources"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Name", "Type", "Quantity", "Available", "Status", "Location", "Description", "Updated At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, resource := range resources {
		row := i + 2
		values := []interface{}{
			resource.ID,
			resource.Name,
			string(resource.Type),
			resource.Quantity,
			utils.DereferencePtr(resource.Available),
			string(resource.Status),
			resource.Location,
			resource.Description,
			resource.UpdatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
