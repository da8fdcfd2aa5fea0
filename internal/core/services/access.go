package services

import (
	"context"
	"fmt"
	"log/slog"

	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/ports"
)

// AccessService реализует трехуровневую модель доверия:
// владелец бота, создатель чата и локальный список доверенных участников.
// Права проверяются заново при каждом вызове, кэша нет.
type AccessService struct {
	ownerID int64
	admins  map[int64]struct{}
	trust   ports.TrustRepository
	log     *slog.Logger
}

// NewAccessService создает сервис прав доступа.
func NewAccessService(ownerID int64, adminIDs []int64, trust ports.TrustRepository, logger *slog.Logger) *AccessService {
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &AccessService{
		ownerID: ownerID,
		admins:  admins,
		trust:   trust,
		log:     logger,
	}
}

// OwnerID возвращает ID владельца бота.
func (s *AccessService) OwnerID() int64 { return s.ownerID }

// IsOwner сообщает, является ли пользователь владельцем.
func (s *AccessService) IsOwner(userID int64) bool {
	return userID == s.ownerID
}

// IsAuthorized открывает доступ к календарю, погоде и новостям:
// владелец или участник статического списка администраторов.
func (s *AccessService) IsAuthorized(userID int64) bool {
	if s.IsOwner(userID) {
		return true
	}
	_, ok := s.admins[userID]
	return ok
}

// CheckPermission решает, может ли пользователь работать с заметками чата.
func (s *AccessService) CheckPermission(ctx context.Context, userID, chatID int64, status domain.MemberStatus) (bool, error) {
	if s.IsOwner(userID) || status == domain.MemberCreator {
		return true, nil
	}
	ok, err := s.trust.Exists(ctx, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("check trust: %w", err)
	}
	return ok, nil
}

// CanManageTrust - раздавать и отзывать доверие могут только владелец и создатель чата.
func (s *AccessService) CanManageTrust(userID int64, status domain.MemberStatus) bool {
	return s.IsOwner(userID) || status == domain.MemberCreator
}

// Grant добавляет пользователя в список доверия чата. Повторная выдача ничего не меняет.
func (s *AccessService) Grant(ctx context.Context, actorID int64, actorStatus domain.MemberStatus, chatID, targetID int64) error {
	if !s.CanManageTrust(actorID, actorStatus) {
		return ErrForbidden
	}
	if err := s.trust.Grant(ctx, domain.TrustGrant{ChatID: chatID, UserID: targetID, GrantedBy: actorID}); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "trust granted",
		slog.Int64("chat_id", chatID), slog.Int64("user_id", targetID), slog.Int64("granted_by", actorID))
	return nil
}

// Revoke убирает пользователя из списка доверия чата.
// Владельца отозвать нельзя, создатель не может отозвать доверие у себя.
func (s *AccessService) Revoke(ctx context.Context, actorID int64, actorStatus domain.MemberStatus, chatID, targetID int64) error {
	if !s.CanManageTrust(actorID, actorStatus) {
		return ErrForbidden
	}
	if s.IsOwner(targetID) {
		return ErrOwnerProtected
	}
	if targetID == actorID {
		return ErrSelfRevoke
	}
	if err := s.trust.Revoke(ctx, chatID, targetID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "trust revoked",
		slog.Int64("chat_id", chatID), slog.Int64("user_id", targetID), slog.Int64("revoked_by", actorID))
	return nil
}

// TrustAdmins выдает доверие всем переданным администраторам чата
// и возвращает число обработанных пользователей.
func (s *AccessService) TrustAdmins(ctx context.Context, actorID int64, actorStatus domain.MemberStatus, chatID int64, adminIDs []int64) (int, error) {
	if !s.CanManageTrust(actorID, actorStatus) {
		return 0, ErrForbidden
	}
	count := 0
	for _, id := range adminIDs {
		if err := s.trust.Grant(ctx, domain.TrustGrant{ChatID: chatID, UserID: id, GrantedBy: actorID}); err != nil {
			return count, err
		}
		count++
	}
	s.log.InfoContext(ctx, "chat admins trusted", slog.Int64("chat_id", chatID), slog.Int("count", count))
	return count, nil
}

// ListTrusted возвращает локальный список доверия чата.
func (s *AccessService) ListTrusted(ctx context.Context, chatID int64) ([]domain.TrustGrant, error) {
	return s.trust.List(ctx, chatID)
}
