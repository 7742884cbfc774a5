package integration_test

import (
	"bytes"
	"encoding/json"
	. "github.com/Alcereo/passgate/integration/utils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"io"
	"net/http"
)

var _ = Describe("CSRF", func() {

	It("CsrfFilter allow unsafe methods with CSRF token", func() {
		client := buildClient()
		login(client, "linkedin", "linkedin-auth-code")

		resp, _ := getByClient(client, gatewayUrl+"/api/v3/resource")
		Expect(resp.StatusCode).To(Equal(200))
		csrfToken := resp.Header.Get(csrfHeaderName)
		Expect(csrfToken).NotTo(BeEmpty(), "CSRF token not found in header: %v", csrfHeaderName)

		resp, message := postJsonByClient(
			client,
			gatewayUrl+"/api/v3/mutable-resource",
			JsonMap{"method": "mutate"},
			func(req *http.Request) *http.Request {
				req.Header.Add(csrfHeaderName, csrfToken)
				return req
			},
		)

		Expect(resp.StatusCode).To(Equal(201))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("version", "v3"))
	})

	It("CsrfFilter block unsafe methods without CSRF token", func() {
		client := buildClient()
		login(client, "linkedin", "linkedin-auth-code")

		resp, _ := postJsonByClient(client, gatewayUrl+"/api/v3/mutable-resource", JsonMap{"method": "mutate"}, nil)

		Expect(resp.StatusCode).To(Equal(403))
	})
})

type requestMutator func(r *http.Request) *http.Request

func postJsonByClient(client *http.Client, url string, body interface{}, mutator requestMutator) (*http.Response, []byte) {
	bytesValue, err := json.Marshal(body)
	if err != nil {
		Fail(err.Error())
	}
	request, err := http.NewRequest(
		"POST",
		url,
		bytes.NewReader(bytesValue),
	)
	if err != nil {
		Fail(err.Error())
	}
	request.Header.Set("Content-Type", "application/json")
	if mutator != nil {
		request = mutator(request)
	}
	resp, err := client.Do(request)
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
