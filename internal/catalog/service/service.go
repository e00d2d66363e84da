package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/innkeeper/internal/cache"
	"github.com/smallbiznis/innkeeper/internal/catalog/domain"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	keyCategories = "catalog:categories"
	keyProducts   = "catalog:products"
	keyRoomTypes  = "catalog:room_types"
	keyRooms      = "catalog:rooms"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Cache   cache.Cache
	Pricing *config.PricingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	cache   cache.Cache
	pricing *config.PricingConfigHolder
}

func New(p Params) domain.Service {
	c := p.Cache
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("catalog.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		cache:   c,
		pricing: p.Pricing,
	}
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	category := &domain.Category{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateCategory(ctx, s.db, category); err != nil {
		return nil, db.Classify(err)
	}
	s.invalidate(ctx, keyCategories)
	return category, nil
}

func (s *Service) RenameCategory(ctx context.Context, id int64, req domain.CategoryRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	category, err := s.repo.FindCategory(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if category == nil {
		return nil, domain.ErrCategoryNotFound
	}

	category.Name = name
	category.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateCategory(ctx, s.db, category); err != nil {
		return nil, db.Classify(err)
	}
	s.invalidate(ctx, keyCategories)
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	if s.cache.Get(ctx, keyCategories, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListCategories(ctx, s.db)
	if err != nil {
		return nil, db.Classify(err)
	}
	s.cache.Set(ctx, keyCategories, items, 0)
	return items, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteCategory(ctx, s.db, id)
	if err != nil {
		return db.Classify(err)
	}
	if !deleted {
		return domain.ErrCategoryNotFound
	}
	s.log.Info("category deleted", zap.Int64("category_id", id))
	s.invalidate(ctx, keyCategories, keyProducts)
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (*domain.Product, error) {
	now := s.clock.Now()
	product := &domain.Product{
		ID:        s.genID.Generate().Int64(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.applyProductRequest(ctx, product, req); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, s.db, product); err != nil {
		return nil, db.Classify(err)
	}
	s.invalidate(ctx, keyProducts)
	return product, nil
}

// UpdateProduct edits the live catalog row only. Lines already copied onto
// tickets or invoices keep their own snapshot.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductRequest) (*domain.Product, error) {
	product, err := s.repo.FindProduct(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if err := s.applyProductRequest(ctx, product, req); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateProduct(ctx, s.db, product); err != nil {
		return nil, db.Classify(err)
	}
	s.invalidate(ctx, keyProducts)
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.FindProduct(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context, req domain.ListProductsRequest) ([]domain.Product, error) {
	filter := domain.ListProductsRequest{
		CategoryID: req.CategoryID,
		Name:       strings.ToLower(strings.TrimSpace(req.Name)),
		SortBy:     strings.TrimSpace(req.SortBy),
		OrderBy:    strings.TrimSpace(req.OrderBy),
	}
	unfiltered := filter == (domain.ListProductsRequest{})

	if unfiltered {
		var cached []domain.Product
		if s.cache.Get(ctx, keyProducts, &cached) {
			return cached, nil
		}
	}

	items, err := s.repo.ListProducts(ctx, s.db, filter)
	if err != nil {
		return nil, db.Classify(err)
	}
	if unfiltered {
		s.cache.Set(ctx, keyProducts, items, 0)
	}
	return items, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteProduct(ctx, s.db, id)
	if err != nil {
		return db.Classify(err)
	}
	if !deleted {
		return domain.ErrProductNotFound
	}
	s.invalidate(ctx, keyProducts)
	return nil
}

func (s *Service) CreateRoomType(ctx context.Context, req domain.RoomTypeRequest) (*domain.RoomType, error) {
	name, err := validateRoomType(req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	roomType := &domain.RoomType{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		Price:     req.Price.Round(2),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateRoomType(ctx, s.db, roomType); err != nil {
		return nil, db.Classify(err)
	}
	s.invalidate(ctx, keyRoomTypes)
	return roomType, nil
}

func (s *Service) UpdateRoomType(ctx context.Context, id int64, req domain.RoomTypeRequest) (*domain.RoomType, error) {
	name, err := validateRoomType(req)
	if err != nil {
		return nil, err
	}

	roomType, err := s.repo.FindRoomType(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if roomType == nil {
		return nil, domain.ErrRoomTypeNotFound
	}

	roomType.Name = name
	roomType.Price = req.Price.Round(2)
	roomType.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateRoomType(ctx, s.db, roomType); err != nil {
		return nil, db.Classify(err)
	}
	s.invalidate(ctx, keyRoomTypes, keyRooms)
	return roomType, nil
}

func (s *Service) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	var cached []domain.RoomType
	if s.cache.Get(ctx, keyRoomTypes, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListRoomTypes(ctx, s.db)
	if err != nil {
		return nil, db.Classify(err)
	}
	s.cache.Set(ctx, keyRoomTypes, items, 0)
	return items, nil
}

func (s *Service) DeleteRoomType(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteRoomType(ctx, s.db, id)
	if err != nil {
		return db.Classify(err)
	}
	if !deleted {
		return domain.ErrRoomTypeNotFound
	}
	s.invalidate(ctx, keyRoomTypes, keyRooms)
	return nil
}

func (s *Service) CreateRoom(ctx context.Context, req domain.RoomRequest) (*domain.Room, error) {
	now := s.clock.Now()
	room := &domain.Room{
		ID:        s.genID.Generate().Int64(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.applyRoomRequest(ctx, room, req); err != nil {
		return nil, err
	}
	if err := s.repo.CreateRoom(ctx, s.db, room); err != nil {
		return nil, roomWriteError(err)
	}
	s.invalidate(ctx, keyRooms)
	return room, nil
}

func (s *Service) UpdateRoom(ctx context.Context, id int64, req domain.RoomRequest) (*domain.Room, error) {
	room, err := s.repo.FindRoom(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	if err := s.applyRoomRequest(ctx, room, req); err != nil {
		return nil, err
	}
	room.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateRoom(ctx, s.db, room); err != nil {
		return nil, roomWriteError(err)
	}
	s.invalidate(ctx, keyRooms)
	return room, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]domain.PricedRoom, error) {
	var cached []domain.PricedRoom
	if s.cache.Get(ctx, keyRooms, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListRooms(ctx, s.db)
	if err != nil {
		return nil, db.Classify(err)
	}
	s.cache.Set(ctx, keyRooms, items, 0)
	return items, nil
}

func (s *Service) DeleteRoom(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteRoom(ctx, s.db, id)
	if err != nil {
		return db.Classify(err)
	}
	if !deleted {
		return domain.ErrRoomNotFound
	}
	s.invalidate(ctx, keyRooms)
	return nil
}

func (s *Service) applyProductRequest(ctx context.Context, product *domain.Product, req domain.ProductRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	if req.InsidePrice.IsNegative() || req.OutsidePrice.IsNegative() {
		return domain.ErrInvalidPrice
	}

	tax := decimal.NewFromInt(int64(s.pricing.Get().DefaultTaxPercentage))
	if req.TaxPercentage != nil {
		tax = *req.TaxPercentage
	}
	if tax.IsNegative() || tax.GreaterThan(hundred) {
		return domain.ErrInvalidTax
	}

	var categoryID *int64
	if req.CategoryID != nil && strings.TrimSpace(*req.CategoryID) != "" {
		id, err := parseID(*req.CategoryID)
		if err != nil {
			return err
		}
		category, err := s.repo.FindCategory(ctx, s.db, id)
		if err != nil {
			return db.Classify(err)
		}
		if category == nil {
			return domain.ErrCategoryNotFound
		}
		categoryID = &id
	}

	product.Name = name
	product.CategoryID = categoryID
	product.InsidePrice = req.InsidePrice.Round(2)
	product.OutsidePrice = req.OutsidePrice.Round(2)
	product.TaxPercentage = tax.Round(2)
	return nil
}

func (s *Service) applyRoomRequest(ctx context.Context, room *domain.Room, req domain.RoomRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	typeID, err := parseID(req.RoomTypeID)
	if err != nil {
		return err
	}
	roomType, err := s.repo.FindRoomType(ctx, s.db, typeID)
	if err != nil {
		return db.Classify(err)
	}
	if roomType == nil {
		return domain.ErrRoomTypeNotFound
	}

	room.Name = name
	room.RoomTypeID = typeID
	return nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	s.cache.Delete(ctx, keys...)
}

func validateRoomType(req domain.RoomTypeRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return "", domain.ErrInvalidPrice
	}
	return name, nil
}

func roomWriteError(err error) error {
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateRoomName
	}
	return db.Classify(err)
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}
