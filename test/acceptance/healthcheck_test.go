// ABOUTME: Acceptance tests for the healthcheck command
// ABOUTME: Covers a healthy target and an unreachable one
package acceptance

import (
	"github.com/pluginsync/pluginsync/test/helpers"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("healthcheck", func() {
	It("prints the health payload of a reachable target", func() {
		fake := helpers.NewFakeGrafana()
		DeferCleanup(fake.Close)
		env := helpers.NewTestEnv(binaryPath, fake.URL())

		result := env.Run("healthcheck")

		Expect(result.ExitCode).To(Equal(0))
		Expect(result.Stdout).To(ContainSubstring("is healthy"))
		Expect(result.Stdout).To(ContainSubstring("Ok"))
	})

	It("fails when the target cannot be reached", func() {
		fake := helpers.NewFakeGrafana()
		url := fake.URL()
		fake.Close()
		env := helpers.NewTestEnv(binaryPath, url)

		result := env.Run("healthcheck")

		Expect(result.ExitCode).To(Equal(1))
		Expect(result.Stderr).To(ContainSubstring("unreachable"))
	})

	It("lets --url override GRAFANA_URL", func() {
		fake := helpers.NewFakeGrafana()
		DeferCleanup(fake.Close)
		env := helpers.NewTestEnv(binaryPath, "http://127.0.0.1:1")

		result := env.Run("healthcheck", "--url", fake.URL())

		Expect(result.ExitCode).To(Equal(0))
	})
})
