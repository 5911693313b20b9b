package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/pkg/cache"
	"github.com/messmate/messmate-backend/pkg/qrcode"
	"github.com/messmate/messmate-backend/pkg/storage"
	"github.com/messmate/messmate-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QRService issues and verifies the signed attestation tokens a mess prints
// at its entrance. The signature binds (messId, issuedAt) only; membership is
// always re-checked live, so a printed poster stays valid until revoked yet
// can never admit someone who is no longer an active member.
type QRService struct {
	messRepo       *repository.MessRepository
	membershipRepo *repository.MembershipRepository
	userRepo       *repository.UserRepository
	signer         *qrcode.Signer
	storage        storage.StorageService
	cache          *cache.RedisCache
	logger         *zap.Logger
}

func NewQRService(
	messRepo *repository.MessRepository,
	membershipRepo *repository.MembershipRepository,
	userRepo *repository.UserRepository,
	signer *qrcode.Signer,
	storageService storage.StorageService,
	redisCache *cache.RedisCache,
	logger *zap.Logger,
) *QRService {
	return &QRService{
		messRepo:       messRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		signer:         signer,
		storage:        storageService,
		cache:          redisCache,
		logger:         logger,
	}
}

func qrCacheKey(messID uint) string {
	return fmt.Sprintf("qrtoken:%d", messID)
}

// Issue returns the mess's live token, minting one only when none exists or
// the owner forces regeneration. The poster stays stable otherwise.
func (s *QRService) Issue(messID, ownerID uint, forceRegenerate bool) (*models.GenerateQRResponse, error) {
	mess, err := s.getOwnedMess(messID, ownerID)
	if err != nil {
		return nil, err
	}

	if mess.QRCodeData != "" && !forceRegenerate {
		return &models.GenerateQRResponse{
			QRCode:     mess.QRCodeImageURL,
			QRCodeData: mess.QRCodeData,
			IsNew:      false,
		}, nil
	}

	_, data, err := s.signer.Issue(mess.ID, mess.Name, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}

	png, err := s.signer.EncodePNG(data)
	if err != nil {
		return nil, err
	}

	imageURL := ""
	if s.storage != nil {
		key := fmt.Sprintf("qr/mess-%d-%s.png", mess.ID, utils.GenerateRandomString(8))
		if err := s.storage.Upload(key, bytes.NewReader(png)); err != nil {
			return nil, err
		}
		imageURL = s.storage.PublicURL(key)
	}

	now := time.Now()
	mess.QRCodeData = data
	mess.QRCodeImageURL = imageURL
	mess.QRGeneratedAt = &now
	if err := s.messRepo.Update(mess); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(context.Background(), qrCacheKey(mess.ID), data, 0); err != nil {
			s.logger.Warn("failed to cache QR token", zap.Error(err))
		}
	}

	s.logger.Info("issued QR attestation token",
		zap.Uint("mess_id", mess.ID),
		zap.Bool("regenerated", forceRegenerate),
	)
	return &models.GenerateQRResponse{
		QRCode:     imageURL,
		QRCodeData: data,
		IsNew:      true,
	}, nil
}

// Revoke clears the live token; the next Issue mints a fresh one.
func (s *QRService) Revoke(messID, ownerID uint) error {
	mess, err := s.getOwnedMess(messID, ownerID)
	if err != nil {
		return err
	}

	mess.QRCodeData = ""
	mess.QRCodeImageURL = ""
	mess.QRGeneratedAt = nil
	if err := s.messRepo.Update(mess); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Delete(context.Background(), qrCacheKey(messID)); err != nil {
			s.logger.Warn("failed to drop cached QR token", zap.Error(err))
		}
	}

	return nil
}

// VerifyByScannee validates a scanned token and answers whether the scanning
// user currently holds an active membership at the mess. A bad signature
// yields a generic invalid result; which field mismatched is never revealed.
func (s *QRService) VerifyByScannee(qrCodeData string, userID uint) (*models.VerificationResult, error) {
	payload, err := qrcode.Decode(qrCodeData)
	if err != nil {
		return invalidResult(), nil
	}

	if !s.signer.Verify(payload) {
		return invalidResult(), nil
	}

	member, err := s.lookupMember(payload.MessID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return &models.VerificationResult{
			IsValid: true,
			Message: "No active membership at this mess",
		}, nil
	}

	return &models.VerificationResult{IsValid: true, Member: member}, nil
}

// VerifyByOwner is the owner-initiated manual path: same live lookup, gated
// by ownership instead of a token.
func (s *QRService) VerifyByOwner(messID, ownerID, targetUserID uint) (*models.VerificationResult, error) {
	if _, err := s.getOwnedMess(messID, ownerID); err != nil {
		return nil, err
	}

	member, err := s.lookupMember(messID, targetUserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return &models.VerificationResult{
			IsValid: false,
			Message: "No active membership at this mess",
		}, nil
	}

	return &models.VerificationResult{IsValid: true, Member: member}, nil
}

func invalidResult() *models.VerificationResult {
	return &models.VerificationResult{
		IsValid: false,
		Message: "Invalid QR code",
	}
}

func (s *QRService) getOwnedMess(messID, ownerID uint) (*models.Mess, error) {
	mess, err := s.messRepo.GetByID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("mess")
	}
	if err != nil {
		return nil, err
	}
	if mess.OwnerID != ownerID {
		return nil, models.NewForbidden("not the mess owner")
	}
	return mess, nil
}

func (s *QRService) lookupMember(messID, userID uint) (*models.VerifiedMember, error) {
	memberships, err := s.membershipRepo.ListActiveByUserAndMess(userID, messID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	mess, err := s.messRepo.GetByID(messID)
	if err != nil {
		return nil, err
	}

	member := &models.VerifiedMember{
		UserID:   user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		MessID:   mess.ID,
		MessName: mess.Name,
	}
	for _, membership := range memberships {
		info := models.MembershipPlanInfo{MealPlanID: membership.MealPlanID}
		if plan, err := s.messRepo.GetMealPlan(membership.MealPlanID); err == nil {
			info.PlanName = plan.Name
		}
		if membership.SubscriptionEndDate != nil {
			info.ValidUntil = membership.SubscriptionEndDate.Format("2006-01-02")
		}
		member.Plans = append(member.Plans, info)
	}

	return member, nil
}
