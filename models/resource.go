package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/utils"
	"gorm.io/gorm"
)

type Resource struct {
	ID          int            `gorm:"primary_key" json:"id"`
	Name        string         `gorm:"size:150;not null" json:"name" binding:"required"`
	Type        ResourceType   `gorm:"type:enum('vehiculo','equipo','personal','insumo');not null;index" json:"type" binding:"required"`
	Quantity    int            `gorm:"not null;default:1" json:"quantity"`
	Available   *bool          `gorm:"not null;default:true" json:"available"`
	Status      ResourceStatus `gorm:"type:enum('available','maintenance');not null;default:available" json:"status"`
	Location    string         `gorm:"size:150" json:"location"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewResource struct {
	Name        string         `json:"name" binding:"required"`
	Type        ResourceType   `json:"type" binding:"required"`
	Quantity    int            `json:"quantity"`
	Available   *bool          `json:"available"`
	Status      ResourceStatus `json:"status"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewResource) validate(ctx context.Context, id int) error {
	if !input.Type.IsValid() {
		return errors.New("invalid resource type")
	}
	if input.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	if input.Status != "" && !input.Status.IsValid() {
		return errors.New("invalid resource status")
	}
	if err := utils.ValidateUnique[Resource](ctx, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateResource(ctx context.Context, input *NewResource) (*Resource, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Status == "" {
		input.Status = ResourceStatusAvailable
	}
	if input.Available == nil {
		input.Available = utils.NewTrue()
	}

	resource := Resource{
		Name:        strings.TrimSpace(input.Name),
		Type:        input.Type,
		Quantity:    input.Quantity,
		Available:   input.Available,
		Status:      input.Status,
		Location:    input.Location,
		Description: input.Description,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&resource).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, resource.ID, "resources", &resource, "Resource created.")
	})
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Resource](); err != nil {
		config.LogError(config.GetLogger(), "models", "CreateResource", "clearing resource list cache", resource.ID, err)
	}
	return &resource, nil
}

func UpdateResource(ctx context.Context, id int, input *NewResource) (*Resource, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	resource, err := utils.FetchSingleModel[Resource](ctx, id)
	if err != nil {
		return nil, err
	}

	// PUT semantics: omitted fields fall back to defaults instead of
	// writing NULL into not-null columns
	if input.Status == "" {
		input.Status = ResourceStatusAvailable
	}
	if input.Available == nil {
		input.Available = utils.NewTrue()
	}

	// db action
	before := *resource
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&resource).Updates(map[string]interface{}{
			"Name":        strings.TrimSpace(input.Name),
			"Type":        input.Type,
			"Quantity":    input.Quantity,
			"Available":   input.Available,
			"Status":      input.Status,
			"Location":    input.Location,
			"Description": input.Description,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, resource.ID, "resources", &before, resource, "Resource updated.")
	})
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Resource](id); err != nil {
		config.LogError(config.GetLogger(), "models", "UpdateResource", "clearing resource cache", id, err)
	}
	if err := utils.RemoveRedisList[Resource](); err != nil {
		config.LogError(config.GetLogger(), "models", "UpdateResource", "clearing resource list cache", id, err)
	}
	return resource, nil
}

func DeleteResource(ctx context.Context, id int) (*Resource, error) {

	db := config.GetDB()
	result, err := utils.FetchSingleModel[Resource](ctx, id)
	if err != nil {
		return nil, err
	}

	// keep the ledger consistent: a resource with live bookings cannot go away
	var count int64
	if err := db.WithContext(ctx).Model(&Booking{}).
		Where("resource_id = ? AND status <> ?", id, BookingStatusCancelled).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("resource has active bookings")
	}

	// db action
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, result.ID, "resources", result, "Resource deleted.")
	})
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Resource](id); err != nil {
		config.LogError(config.GetLogger(), "models", "DeleteResource", "clearing resource cache", id, err)
	}
	if err := utils.RemoveRedisList[Resource](); err != nil {
		config.LogError(config.GetLogger(), "models", "DeleteResource", "clearing resource list cache", id, err)
	}
	return result, nil
}

func GetResource(ctx context.Context, id int) (*Resource, error) {
	cached, err := utils.RetrieveRedis[Resource](id)
	if err == nil && cached != nil {
		return cached, nil
	}

	result, err := utils.FetchSingleModel[Resource](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis[Resource](result, id); err != nil {
		config.LogError(config.GetLogger(), "models", "GetResource", "caching resource", id, err)
	}
	return result, nil
}

// ListResources filters by type and/or name, both optional and
// case-insensitive. The unfiltered listing is served from the Redis
// list cache; writes invalidate it.
func ListResources(ctx context.Context, resourceType *string, name *string) ([]*Resource, error) {

	unfiltered := (resourceType == nil || *resourceType == "") && (name == nil || *name == "")
	if unfiltered {
		cached, err := utils.RetrieveRedisList[Resource]()
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	db := config.GetDB()
	var results []*Resource

	dbCtx := db.WithContext(ctx)
	if resourceType != nil && *resourceType != "" {
		dbCtx = dbCtx.Where("LOWER(type) = ?", strings.ToLower(strings.TrimSpace(*resourceType)))
	}
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(*name))+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}

	if unfiltered {
		if err := utils.StoreRedisList[Resource](results); err != nil {
			config.LogError(config.GetLogger(), "models", "ListResources", "caching resource list", len(results), err)
		}
	}
	return results, nil
}

// QueryResources is the planner-facing query: all resources of a type,
// optionally narrowed to an exact name. Matching is case-insensitive.
func QueryResources(ctx context.Context, resourceType string, name string) ([]Resource, error) {

	db := config.GetDB()
	var results []Resource

	dbCtx := db.WithContext(ctx).
		Where("LOWER(type) = ?", strings.ToLower(strings.TrimSpace(resourceType)))
	if strings.TrimSpace(name) != "" {
		dbCtx = dbCtx.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	}
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
