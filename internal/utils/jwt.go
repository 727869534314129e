package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const tokenIssuer = "mindcare-api"

type JWTUtil struct {
	secretKey  string
	expiration time.Duration
	now        func() time.Time
}

func NewJWTUtil(secretKey string, expiration time.Duration) *JWTUtil {
	return &JWTUtil{
		secretKey:  secretKey,
		expiration: expiration,
		now:        time.Now,
	}
}

// WithClock replaces the time source used when issuing tokens.
func (j *JWTUtil) WithClock(now func() time.Time) *JWTUtil {
	j.now = now
	return j
}

type Claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

func (j *JWTUtil) GenerateToken(userID int64, role string) (string, error) {
	issuedAt := j.now()

	claims := &Claims{
		UserID: userID,
		Role:   role,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: issuedAt.Add(j.expiration).Unix(),
			IssuedAt:  issuedAt.Unix(),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ValidateToken returns ErrTokenExpired for a well-signed but expired token
// and ErrTokenInvalid for anything else that fails verification.
func (j *JWTUtil) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(j.secretKey), nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors == jwt.ValidationErrorExpired {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
