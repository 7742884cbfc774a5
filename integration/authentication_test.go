package integration_test

import (
	"encoding/json"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"golang.org/x/net/publicsuffix"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

var _ = Describe("In passgate gateway", func() {

	It("ReverseProxy can proxy to resources", func() {
		resp, message := get(gatewayUrl + "/api/v1/resource")
		Expect(resp.StatusCode).To(Equal(200))

		messageMap := unmarshalToMap(message)
		Expect(messageMap).To(HaveKeyWithValue("status", "OK"))
		Expect(messageMap).To(HaveKeyWithValue("service", "resource"))
		Expect(messageMap).To(HaveKeyWithValue("version", "v1"))
	})

	It("UserAuthenticationFilter can block access to resource", func() {
		resp, _ := get(gatewayUrl + "/api/v2/resource")
		Expect(resp.StatusCode).To(Equal(401))
	})

	It("client session exposes strategies without secrets", func() {
		resp, message := get(gatewayUrl + "/auth/session")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(string(message)).NotTo(ContainSubstring("secret"))

		session := unmarshalSession(message)
		Expect(session.UserId).To(BeNil())
		Expect(session.Auth).To(HaveKeyWithValue("linkedin", map[string]interface{}{
			"clientId": linkedinClientId,
			"loginUrl": "/auth/linkedin",
		}))
		Expect(session.Auth).To(HaveKeyWithValue("facebook", map[string]interface{}{
			"clientId": facebookClientId,
			"loginUrl": "/auth/facebook",
		}))
	})
})

var _ = Describe("LinkedIn strategy", func() {

	It("redirects to the provider with state", func() {
		location := startLogin(buildClient(), "linkedin")

		Expect(location.Path).To(Equal("/oauth/v2/authorization"))
		Expect(location.Query().Get("client_id")).To(Equal(linkedinClientId))
		Expect(location.Query().Get("redirect_uri")).To(Equal(gatewayUrl + "/auth/linkedin/callback"))
		Expect(location.Query().Get("scope")).To(Equal("openid profile email"))
		Expect(location.Query().Get("state")).NotTo(BeEmpty())
	})

	It("authenticates and proxies to the protected resource", func() {
		client := buildClient()

		resp, message := login(client, "linkedin", "linkedin-auth-code")
		Expect(resp.StatusCode).To(Equal(200))

		messageMap := unmarshalToMap(message)
		Expect(messageMap).To(HaveKeyWithValue("service", "resource"))
		Expect(messageMap).To(HaveKeyWithValue("version", "v2"))

		_, message = getByClient(client, gatewayUrl+"/auth/session")
		Expect(unmarshalSession(message).UserId).NotTo(BeNil())
	})

	It("resolves the same user for every login of the account", func() {
		first := buildClient()
		second := buildClient()

		login(first, "linkedin", "linkedin-auth-code")
		login(second, "linkedin", "linkedin-auth-code")

		_, firstSession := getByClient(first, gatewayUrl+"/auth/session")
		_, secondSession := getByClient(second, gatewayUrl+"/auth/session")
		firstUser := unmarshalSession(firstSession).UserId
		secondUser := unmarshalSession(secondSession).UserId
		Expect(firstUser).NotTo(BeNil())
		Expect(secondUser).NotTo(BeNil())
		Expect(*firstUser).To(Equal(*secondUser))
	})

	It("fails login with a foreign state", func() {
		client := buildClient()
		startLogin(client, "linkedin")

		resp, message := getByClient(client, gatewayUrl+"/auth/linkedin/callback?code=linkedin-auth-code&state=forged")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("version", "login-page"))

		resp, _ = getByClient(client, gatewayUrl+"/api/v2/resource")
		Expect(resp.StatusCode).To(Equal(401))
	})

	It("logs out", func() {
		client := buildClient()
		login(client, "linkedin", "linkedin-auth-code")

		resp, message := getByClient(client, gatewayUrl+"/auth/logout")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("version", "v1"))

		resp, _ = getByClient(client, gatewayUrl+"/api/v2/resource")
		Expect(resp.StatusCode).To(Equal(401))
	})
})

var _ = Describe("Facebook strategy", func() {

	It("fails login for a profile without email", func() {
		client := buildClient()

		resp, message := login(client, "facebook", "facebook-auth-code")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("version", "login-page"))

		_, message = getByClient(client, gatewayUrl+"/auth/session")
		Expect(unmarshalSession(message).UserId).To(BeNil())
	})
})

var _ = Describe("Metrics", func() {

	It("exposes login attempts", func() {
		login(buildClient(), "linkedin", "linkedin-auth-code")

		resp, message := get(gatewayUrl + "/metrics")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(string(message)).To(ContainSubstring(`passgate_login_attempts_total{outcome="success",strategy="linkedin"}`))
	})
})

type clientSession struct {
	Auth   map[string]interface{} `json:"auth"`
	UserId *string                `json:"userId"`
}

func unmarshalSession(message []byte) clientSession {
	var session clientSession
	if err := json.Unmarshal(message, &session); err != nil {
		Fail(err.Error())
	}
	return session
}

// startLogin returns the provider consent location without following it.
func startLogin(client *http.Client, provider string) *url.URL {
	noRedirect := *client
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, _ := getByClient(&noRedirect, gatewayUrl+"/auth/"+provider)
	Expect(resp.StatusCode).To(Equal(302))

	location, err := url.Parse(resp.Header.Get("Location"))
	Expect(err).NotTo(HaveOccurred())
	return location
}

// login plays the provider part: takes the state from the consent redirect
// and comes back to the callback with the code.
func login(client *http.Client, provider string, code string) (*http.Response, []byte) {
	state := startLogin(client, provider).Query().Get("state")
	callback := gatewayUrl + "/auth/" + provider + "/callback?" + url.Values{
		"code":  {code},
		"state": {state},
	}.Encode()
	return getByClient(client, callback)
}

func unmarshalToMap(message []byte) map[string]string {
	messageMap := make(map[string]string)
	if err := json.Unmarshal(message, &messageMap); err != nil {
		Fail(err.Error() + ": " + strings.TrimSpace(string(message)))
	}
	return messageMap
}

func get(url string) (*http.Response, []byte) {
	return getByClient(buildClient(), url)
}

func getByClient(client *http.Client, url string) (*http.Response, []byte) {
	resp, err := client.Get(url)
	if err != nil {
		Fail(err.Error())
	}
	message, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		Fail(err.Error())
	}
	return resp, message
}

func buildClient() *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		log.Fatal(err)
	}
	return &http.Client{Jar: jar}
}
