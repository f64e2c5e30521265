package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	u, err := s.deps.Users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    u.Ref(),
	})
}

func (s *HTTPServer) verifyEmail(c *gin.Context) {
	if _, err := s.deps.Users.VerifyEmail(c.Request.Context(), c.Param("token")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, s.deps.Settings.ServerURL()+"/verification-success")
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.deps.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.deps.Users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

func (s *HTTPServer) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.deps.Users.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (s *HTTPServer) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (s *HTTPServer) listUsers(c *gin.Context) {
	users, err := s.deps.Users.ListUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *HTTPServer) approveUser(c *gin.Context) {
	u, err := s.deps.Users.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User approved", "user": u})
}

func (s *HTTPServer) verifyUser(c *gin.Context) {
	u, err := s.deps.Users.ManualVerify(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User verified", "user": u})
}

func (s *HTTPServer) changeRole(c *gin.Context) {
	var req roleRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	u, err := s.deps.Users.ChangeRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "user": u})
}

func (s *HTTPServer) deleteUser(c *gin.Context) {
	if err := s.deps.Users.DeleteUser(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (s *HTTPServer) deleteUsers(c *gin.Context) {
	var req idsRequest
	if err := bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	n, err := s.deps.Users.DeleteUsers(c.Request.Context(), currentUser(c).ID, req.IDs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Users deleted", "deleted": n})
}
