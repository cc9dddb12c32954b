package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/es"
	"Warbler/internal/pkg/identity"
	"Warbler/internal/pkg/redis"
	"Warbler/internal/pkg/security"
	"Warbler/internal/pkg/util"
	"Warbler/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxUsernameAttempts = 1000

type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupDTO) (*dto.AuthDTO, error)
	Login(ctx context.Context, req *dto.LoginDTO) (*dto.AuthDTO, error)
	// GoogleAuth 第二个返回值表示是否新建了账号
	GoogleAuth(ctx context.Context, req *dto.GoogleAuthDTO) (*dto.AuthDTO, bool, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, userID primitive.ObjectID) (*dto.UserDTO, error)
}

type AuthServiceImpl struct {
	users    repository.UserRepo
	tokens   *security.TokenManager
	verifier identity.Verifier
	rdb      redisv9.Cmdable
	index    es.UserRepo
}

// NewAuthService verifier 为 nil 时信任客户端提交的 Google 资料，仅用于开发环境
func NewAuthService(
	users repository.UserRepo,
	tokens *security.TokenManager,
	verifier identity.Verifier,
	rdb redisv9.Cmdable,
	index es.UserRepo,
) AuthService {
	return &AuthServiceImpl{
		users:    users,
		tokens:   tokens,
		verifier: verifier,
		rdb:      rdb,
		index:    index,
	}
}

func (s *AuthServiceImpl) issue(user *model.User) (*dto.AuthDTO, error) {
	token, err := s.tokens.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	return &dto.AuthDTO{Token: token, User: toSelfDTO(user)}, nil
}

func translateConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, repository.ErrDuplicateUsername):
		return ErrUsernameTaken
	}
	return err
}

func (s *AuthServiceImpl) Signup(ctx context.Context, req *dto.SignupDTO) (*dto.AuthDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, err
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !util.ValidUsername(username) {
		return nil, ErrUsernameInvalid
	}
	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, ErrParamInvalid
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     username,
		Email:        email,
		Password:     hashed,
		AuthProvider: model.AuthProviderLocal,
		ProfilePic:   model.DefaultProfilePic,
		BirthDate:    &birthDate,
	}
	// 并发注册时由唯一索引兜底
	if err = s.users.Create(ctx, user); err != nil {
		return nil, translateConflict(err)
	}

	syncUserIndex(ctx, s.index, user)
	return s.issue(user)
}

func parseBirthDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginDTO) (*dto.AuthDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, err
	}
	user, err := s.users.GetByLogin(ctx, strings.ToLower(strings.TrimSpace(req.EmailOrUsername)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if user.Password == "" {
		return nil, ErrGoogleAccount
	}
	if err = security.CheckPasswordHash(req.Password, user.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthServiceImpl) GoogleAuth(ctx context.Context, req *dto.GoogleAuthDTO) (*dto.AuthDTO, bool, error) {
	profile, err := s.resolveGoogleProfile(ctx, req)
	if err != nil {
		return nil, false, err
	}

	user, err := s.users.GetByGoogleIDOrEmail(ctx, profile.GoogleID, profile.Email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if user.GoogleID == "" {
			if err = s.users.LinkGoogleID(ctx, user.ID, profile.GoogleID); err != nil {
				return nil, false, err
			}
			user.GoogleID = profile.GoogleID
		}
		res, err := s.issue(user)
		return res, false, err
	}

	username, err := s.generateUsername(ctx, profile.Email)
	if err != nil {
		return nil, false, err
	}
	name := profile.Name
	if name == "" {
		name = username
	}
	pic := profile.Picture
	if pic == "" {
		pic = model.DefaultProfilePic
	}
	user = &model.User{
		Name:         name,
		Username:     username,
		Email:        profile.Email,
		AuthProvider: model.AuthProviderGoogle,
		GoogleID:     profile.GoogleID,
		ProfilePic:   pic,
	}
	if err = s.users.Create(ctx, user); err != nil {
		return nil, false, translateConflict(err)
	}

	syncUserIndex(ctx, s.index, user)
	res, err := s.issue(user)
	return res, true, err
}

func (s *AuthServiceImpl) resolveGoogleProfile(ctx context.Context, req *dto.GoogleAuthDTO) (*identity.GoogleProfile, error) {
	var profile *identity.GoogleProfile
	if s.verifier != nil {
		if req.IDToken == "" {
			return nil, ErrGoogleTokenInvalid
		}
		p, err := s.verifier.Verify(ctx, req.IDToken)
		if err != nil {
			log.WarnContext(ctx, "google id token rejected", "err", err)
			return nil, ErrGoogleTokenInvalid
		}
		profile = p
	} else {
		profile = &identity.GoogleProfile{
			GoogleID: req.GoogleID,
			Email:    req.Email,
			Name:     req.Name,
			Picture:  req.ProfilePic,
		}
	}

	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if profile.GoogleID == "" || profile.Email == "" {
		return nil, ErrParamInvalid
	}
	return profile, nil
}

// generateUsername 邮箱前缀去掉非法字符后截断，重复时追加数字后缀
func (s *AuthServiceImpl) generateUsername(ctx context.Context, email string) (string, error) {
	base := util.UsernameBase(email)
	for i := 0; i < maxUsernameAttempts; i++ {
		candidate := util.UsernameCandidate(base, i)
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrUsernameTaken
}

// Logout 将令牌签名加入黑名单直到令牌过期，Redis 不可用时返回错误
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return UnauthorizedError
	}
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return UnauthorizedError
	}
	if s.rdb == nil {
		return nil
	}
	ttl := s.tokens.Remaining(claims)
	if ttl <= 0 {
		return nil
	}
	return redis.SetWithExpiration(ctx, s.rdb, consts.TokenBlacklistKey+signature, 1, ttl)
}

func (s *AuthServiceImpl) Me(ctx context.Context, userID primitive.ObjectID) (*dto.UserDTO, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return toSelfDTO(user), nil
}
