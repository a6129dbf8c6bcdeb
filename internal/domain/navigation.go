package domain

import "fmt"

// Tab is a top-level page section.
type Tab string

const (
	TabDetection   Tab = "detection"
	TabInformation Tab = "information"
	TabAbout       Tab = "about"
)

// InfoTab is a sub-section of the Information tab.
type InfoTab string

const (
	InfoAboutSkinCancer  InfoTab = "about-skin-cancer"
	InfoABCDERule        InfoTab = "abcde-rule"
	InfoWhenToSeeADoctor InfoTab = "when-to-see-doctor"
)

// ParseTab accepts only the known tab names.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(s); t {
	case TabDetection, TabInformation, TabAbout:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

func ParseInfoTab(s string) (InfoTab, error) {
	switch t := InfoTab(s); t {
	case InfoAboutSkinCancer, InfoABCDERule, InfoWhenToSeeADoctor:
		return t, nil
	}
	return "", fmt.Errorf("unknown information section %q", s)
}
