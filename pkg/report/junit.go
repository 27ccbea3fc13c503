package report

import (
	"fmt"
	"io"
	"time"

	"github.com/beevik/etree"

	"github.com/ewagner-dev/nestup/pkg/types"
)

// RenderJUnit writes the report as JUnit XML, one test case per
// subproject, so CI systems can surface per-subproject failures without
// any custom tooling.
func RenderJUnit(w io.Writer, r Report) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", fmt.Sprintf("nestup-%s", r.Mode))
	suite.CreateAttr("tests", fmt.Sprintf("%d", r.Summary.Subprojects))
	suite.CreateAttr("failures", fmt.Sprintf("%d", len(r.Summary.FailedSubprojects)))
	suite.CreateAttr("timestamp", r.GeneratedAt.Format(time.RFC3339))

	for _, res := range r.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", res.Subproject)
		tc.CreateAttr("classname", "nestup.subproject")

		if res.Failed() {
			failure := tc.CreateElement("failure")
			failure.CreateAttr("type", string(res.Error))
			if res.Message != "" {
				failure.CreateAttr("message", res.Message)
			}
			failure.SetText(fmt.Sprintf("repo=%s install=%s", res.RepoAction, res.Install))
			continue
		}

		if res.Install == types.InstallSkipped || res.Install == types.InstallNotAttempted {
			skipped := tc.CreateElement("skipped")
			if res.Message != "" {
				skipped.CreateAttr("message", res.Message)
			}
		}
	}

	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}
