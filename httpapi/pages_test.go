package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"insta-pics/photoshare"
	"insta-pics/photoshare/inmemoryimpl"

	"github.com/stretchr/testify/suite"
)

var gifBytes = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

// switchPolicy lets a test flip the second factor on and off between requests.
type switchPolicy struct {
	require atomic.Bool
	accept  atomic.Bool
}

func (p *switchPolicy) RequireSecondFactor(string) bool             { return p.require.Load() }
func (p *switchPolicy) Verify(context.Context, string, string) bool { return p.accept.Load() }

func newTestServer(policy photoshare.VerificationPolicy) *httptest.Server {
	return httptest.NewServer(NewRouter(Deps{
		Registry:       photoshare.NewRegistry(inmemoryimpl.NewInMemoryStorage(), 100, nil),
		Authenticator:  photoshare.Authenticator{Policy: policy},
		Uploader:       photoshare.Uploader{},
		Challenges:     photoshare.NewChallenges(time.Minute),
		MaxUploadBytes: 1 << 20,
	}))
}

type PagesSuite struct {
	suite.Suite
	policy *switchPolicy
	server *httptest.Server
	client *http.Client
}

func TestPages(t *testing.T) {
	suite.Run(t, &PagesSuite{})
}

func (s *PagesSuite) SetupTest() {
	s.policy = &switchPolicy{}
	s.server = newTestServer(s.policy)
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	s.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *PagesSuite) TearDownTest() {
	s.server.Close()
}

func (s *PagesSuite) get(path string) *http.Response {
	resp, err := s.client.Get(s.server.URL + path)
	s.Require().NoError(err)
	return resp
}

func (s *PagesSuite) postForm(path string, form url.Values) *http.Response {
	resp, err := s.client.PostForm(s.server.URL+path, form)
	s.Require().NoError(err)
	return resp
}

func (s *PagesSuite) postUpload(caption string, image []byte) *http.Response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	s.Require().NoError(mw.WriteField("caption", caption))
	if image != nil {
		part, err := mw.CreateFormFile("image", "photo.gif")
		s.Require().NoError(err)
		_, err = part.Write(image)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/upload", &body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *PagesSuite) body(resp *http.Response) string {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return string(data)
}

func (s *PagesSuite) requireRedirect(resp *http.Response, location string) {
	defer resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)
	s.Require().Equal(location, resp.Header.Get("Location"))
}

func (s *PagesSuite) login(username string) {
	s.requireRedirect(s.postForm("/login", url.Values{
		"username": {username},
		"password": {"secret123"},
	}), "/feed")
}

func (s *PagesSuite) TestRootRedirectsToFeed() {
	s.requireRedirect(s.get("/"), "/feed")
}

func (s *PagesSuite) TestProtectedPagesRedirectToLogin() {
	for _, path := range []string{"/feed", "/upload", "/profile/naturelovers"} {
		s.Run(path, func() {
			s.requireRedirect(s.get(path), "/login")
		})
	}
	s.Run("Like", func() {
		s.requireRedirect(s.postForm("/posts/1/like", nil), "/login")
	})
}

func (s *PagesSuite) TestDeviceCookie() {
	resp := s.get("/login")
	s.body(resp)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var device string
	for _, c := range resp.Cookies() {
		if c.Name == deviceCookie {
			device = c.Value
		}
	}
	s.Require().NotEmpty(device)
	s.Require().Equal(device, resp.Header.Get(deviceHeader))

	resp = s.get("/login")
	s.body(resp)
	s.Require().Empty(resp.Cookies())
	s.Require().Equal(device, resp.Header.Get(deviceHeader))
}

func (s *PagesSuite) TestLogin() {
	s.Run("ShortUsername", func() {
		resp := s.postForm("/login", url.Values{"username": {"ab"}, "password": {"secret123"}})
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		page := s.body(resp)
		s.Require().Contains(page, photoshare.ErrUsernameLength.Error())
		s.Require().Contains(page, `value="ab"`)
	})
	s.Run("ShortPassword", func() {
		resp := s.postForm("/login", url.Values{"username": {"alice"}, "password": {"12345"}})
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Require().Contains(s.body(resp), photoshare.ErrPasswordLength.Error())
	})
	s.Run("UnsafeUsername", func() {
		resp := s.postForm("/login", url.Values{"username": {"alice/../admin"}, "password": {"secret123"}})
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Require().Contains(s.body(resp), photoshare.ErrUsernameChars.Error())
		s.requireRedirect(s.get("/feed"), "/login")
	})
	s.Run("Success", func() {
		s.login("  alice  ")
		page := s.body(s.get("/feed"))
		s.Require().Contains(page, "@alice")
		s.Require().Contains(page, "@naturelovers")
		s.Require().Contains(page, "@puppylife")
		s.Require().Contains(page, "@coffeetime")
	})
	s.Run("LoginPageWhenLoggedIn", func() {
		s.requireRedirect(s.get("/login"), "/feed")
	})
}

func (s *PagesSuite) TestSecondFactor() {
	s.policy.require.Store(true)
	s.requireRedirect(s.postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"secret123"},
	}), "/verify")

	resp := s.get("/verify")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Contains(s.body(resp), "Two-Factor Authentication")

	s.Run("MalformedCode", func() {
		resp := s.postForm("/verify", url.Values{"code": {"12ab"}})
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Require().Contains(s.body(resp), photoshare.ErrCodeFormat.Error())
	})
	s.Run("RejectedCode", func() {
		resp := s.postForm("/verify", url.Values{"code": {"123456"}})
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Require().Contains(s.body(resp), photoshare.ErrCodeRejected.Error())
		s.requireRedirect(s.get("/feed"), "/login")
	})
	s.Run("Resend", func() {
		resp := s.postForm("/verify/resend", nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Require().Contains(s.body(resp), "New verification code sent to your authenticator app!")
	})
	s.Run("AcceptedCode", func() {
		s.policy.accept.Store(true)
		s.requireRedirect(s.postForm("/verify", url.Values{"code": {"123456"}}), "/feed")
		s.Require().Contains(s.body(s.get("/feed")), "@alice")
		s.requireRedirect(s.get("/verify"), "/login")
	})
}

func (s *PagesSuite) TestVerifyWithoutChallenge() {
	s.requireRedirect(s.get("/verify"), "/login")
	s.requireRedirect(s.postForm("/verify", url.Values{"code": {"123456"}}), "/login")
	s.requireRedirect(s.postForm("/verify/resend", nil), "/login")
}

func (s *PagesSuite) TestLikePost() {
	s.login("alice")

	s.requireRedirect(s.postForm("/posts/1/like", url.Values{"next": {"/feed#post-1"}}), "/feed#post-1")
	page := s.body(s.get("/feed"))
	s.Require().Contains(page, "1 like<")
	s.Require().Contains(page, "Unlike")

	s.requireRedirect(s.postForm("/posts/1/like", url.Values{"next": {"/profile/naturelovers"}}), "/profile/naturelovers")
	page = s.body(s.get("/profile/naturelovers"))
	s.Require().Contains(page, `class="total-likes">0<`)

	s.Run("UnknownPost", func() {
		s.requireRedirect(s.postForm("/posts/nope/like", url.Values{"next": {"/feed"}}), "/feed")
	})
	s.Run("OffsiteNext", func() {
		s.requireRedirect(s.postForm("/posts/2/like", url.Values{"next": {"//example.com/"}}), "/feed")
	})
}

func (s *PagesSuite) TestUpload() {
	s.login("alice")

	resp := s.get("/upload")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Contains(s.body(resp), "0/500")

	s.Run("MissingImage", func() {
		resp := s.postUpload("kept caption", nil)
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		page := s.body(resp)
		s.Require().Contains(page, photoshare.ErrImageRequired.Error())
		s.Require().Contains(page, "kept caption")
	})
	s.Run("NotAnImage", func() {
		resp := s.postUpload("text file", []byte("just some text, not a picture"))
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Require().Contains(s.body(resp), photoshare.ErrNotAnImage.Error())
	})
	s.Run("BlankCaption", func() {
		resp := s.postUpload("   ", gifBytes)
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Require().Contains(s.body(resp), photoshare.ErrCaptionRequired.Error())
	})
	s.Run("CaptionTooLong", func() {
		resp := s.postUpload(strings.Repeat("x", photoshare.MaxCaptionLength+1), gifBytes)
		s.Require().Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Require().Contains(s.body(resp), photoshare.ErrCaptionTooLong.Error())
	})
	s.Run("Published", func() {
		s.requireRedirect(s.postUpload("  first upload  ", gifBytes), "/feed")
		page := s.body(s.get("/feed"))
		s.Require().Contains(page, "first upload")
		s.Require().Contains(page, "data:image/gif;base64,")
		s.Require().Less(strings.Index(page, "first upload"), strings.Index(page, "@naturelovers"))

		page = s.body(s.get("/profile/alice"))
		s.Require().Contains(page, `class="post-count">1<`)
	})
}

func (s *PagesSuite) TestProfile() {
	s.login("alice")

	s.Run("OwnEmpty", func() {
		resp := s.get("/profile/alice")
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		page := s.body(resp)
		s.Require().Contains(page, `class="post-count">0<`)
		s.Require().Contains(page, `class="following">0<`)
		s.Require().Contains(page, "Create your first post")
	})
	s.Run("Other", func() {
		page := s.body(s.get("/profile/puppylife"))
		s.Require().Contains(page, `class="post-count">1<`)
		s.Require().NotContains(page, "add-post")
	})
	s.Run("Unknown", func() {
		page := s.body(s.get("/profile/nobody"))
		s.Require().Contains(page, `class="post-count">0<`)
		s.Require().Contains(page, "No posts yet")
	})
}

func (s *PagesSuite) TestLogout() {
	s.login("alice")
	s.requireRedirect(s.postForm("/logout", nil), "/login")
	s.requireRedirect(s.get("/feed"), "/login")

	resp := s.get("/login")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NotContains(s.body(resp), "@alice")
}

func (s *PagesSuite) TestNotFound() {
	resp := s.get("/no/such/page")
	s.Require().Equal(http.StatusNotFound, resp.StatusCode)
	s.Require().Contains(s.body(resp), "Oops! Page not found")
}

func (s *PagesSuite) TestInfrastructureRoutes() {
	s.Run("Static", func() {
		resp := s.get("/static/demo-sunset.svg")
		s.body(resp)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Require().Contains(resp.Header.Get("Content-Type"), "image/svg+xml")
	})
	s.Run("Ping", func() {
		resp := s.get("/maintenance/ping")
		s.body(resp)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
	})
	s.Run("Metrics", func() {
		s.body(s.get("/login"))
		resp := s.get("/metrics")
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Require().Contains(s.body(resp), "instapics_http_requests_total")
	})
}
