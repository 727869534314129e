package handlers

import (
	"net/http"
	"time"

	"mindcare-api/internal/config"
	"mindcare-api/internal/models"
	"mindcare-api/internal/responses"
	"mindcare-api/internal/services"

	"github.com/gorilla/mux"
)

func Register(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := auth.Register(r.Context(), req)
		if err != nil {
			er.Send(w, r, err)
			return
		}

		responses.SendJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"token":   res.Token,
			"user":    res.User.Response(),
		})
	}
}

func Login(auth *services.AuthService, cfg *config.Config, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := auth.Login(r.Context(), req)
		if err != nil {
			er.Send(w, r, err)
			return
		}

		if req.RememberMe {
			http.SetCookie(w, &http.Cookie{
				Name:     tokenCookie,
				Value:    res.Token,
				Path:     "/",
				Expires:  time.Now().Add(cfg.JWTCookieExpires),
				HttpOnly: true,
				Secure:   cfg.IsProduction(),
				SameSite: http.SameSiteStrictMode,
			})
		}

		responses.SendJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   res.Token,
			"user":    res.User.Response(),
		})
	}
}

func Logout(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.Logout(r.Context(), currentUser(r).ID); err != nil {
			er.Send(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     tokenCookie,
			Value:    "none",
			Path:     "/",
			Expires:  time.Now().Add(10 * time.Second),
			HttpOnly: true,
		})
		responses.SendMessage(w, http.StatusOK, "Logged out successfully")
	}
}

func GetMe(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.Me(r.Context(), currentUser(r).ID)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusOK, user)
	}
}

func UpdateDetails(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateDetailsRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		user, err := auth.UpdateDetails(r.Context(), currentUser(r).ID, req)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusOK, user)
	}
}

func UpdatePassword(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdatePasswordRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := auth.UpdatePassword(r.Context(), currentUser(r).ID, req)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   res.Token,
			"message": "Password updated successfully",
		})
	}
}

func ForgotPassword(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ForgotPasswordRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		if err := auth.ForgotPassword(r.Context(), req); err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendMessage(w, http.StatusOK, "Password reset email sent")
	}
}

func ResetPassword(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ResetPasswordRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := auth.ResetPassword(r.Context(), mux.Vars(r)["token"], req)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   res.Token,
			"message": "Password reset successful",
		})
	}
}

func VerifyEmail(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.VerifyEmail(r.Context(), mux.Vars(r)["token"]); err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendMessage(w, http.StatusOK, "Email verified successfully")
	}
}

func ResendVerification(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.ResendVerification(r.Context(), currentUser(r).ID); err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendMessage(w, http.StatusOK, "Verification email sent")
	}
}

// UnlockAccount lets an administrator clear a lockout early.
func UnlockAccount(auth *services.AuthService, er responses.ErrorReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		user, err := auth.UnlockAccount(r.Context(), id)
		if err != nil {
			er.Send(w, r, err)
			return
		}
		responses.SendSuccessResponse(w, http.StatusOK, user)
	}
}
